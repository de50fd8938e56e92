package zerovacancy

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded browser scripts, then the user's static files and uploads.
	e.GET("/assets/:name", a.Assets.Handler)
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/pricing/", a.handlePricing)
	e.GET("/blog/", a.handleBlogIndex)
	e.GET("/blog/search/", a.handleSearch)
	e.GET("/blog/:slug/", a.handlePost)
	e.POST("/waitlist/", a.handleWaitlistForm)

	// JSON API
	e.POST("/api/waitlist", a.handleWaitlistAPI)
	e.GET("/api/posts", a.handlePostsAPI)
	e.GET("/api/config", a.handleConfigAPI)
	if a.Engagement != nil {
		e.POST("/api/engagement", a.Engagement.Collect)
	}

	// Admin
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	admin := e.Group("/admin", requireAdmin)
	admin.POST("/logout/", handleAdminLogout)
	admin.POST("/waitlist/:id/status/", a.handleAdminWaitlistStatus)
	admin.POST("/post/save/", a.handleAdminSave)
	admin.POST("/post/:slug/delete/", a.handleAdminDelete)
	admin.POST("/post/:slug/cover/", a.handleCoverUpload)
	admin.POST("/categories/", a.handleAdminCategory)
	admin.POST("/authors/", a.handleAdminAuthor)
	admin.GET("/api/waitlist", a.handleAdminWaitlistAPI)
	admin.GET("/api/engagement", a.handleAdminEngagementAPI)
}

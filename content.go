package zerovacancy

import "github.com/zerovacancy/zerovacancy-sub004/views"

// pricingPlans is shown on /pricing/. Prices are placeholders until launch.
var pricingPlans = []views.Plan{
	{
		Name:   "Starter",
		Price:  "$149",
		Period: "shoot",
		Blurb:  "For owners with a unit or two to fill.",
		Features: []string{
			"25 edited photos",
			"Delivery in 72 hours",
			"Listing-portal sizes",
		},
	},
	{
		Name:      "Growth",
		Price:     "$399",
		Period:    "month",
		Blurb:     "For property managers turning units every month.",
		Highlight: true,
		Features: []string{
			"4 shoots per month",
			"Video walkthroughs",
			"Floor plans",
			"Shared team dashboard",
		},
	},
	{
		Name:  "Portfolio",
		Price: "Custom",
		Blurb: "For operators with hundreds of doors.",
		Features: []string{
			"Unlimited shoots",
			"Dedicated creator pool",
			"API access",
			"Priority support",
		},
	},
}

// homePostCount is the number of recent posts on the landing page.
const homePostCount = 3

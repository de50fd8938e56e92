package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "config":
		err = runConfig(args)
	case "version":
		fmt.Printf("zerovacancy %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`zerovacancy - the ZeroVacancy marketing site, waitlist and blog

Usage:
  zerovacancy [command] [flags]

Commands:
  serve     Run the web server (default)
  config    Print the resolved browser runtime configuration
  version   Print the version
  help      Show this help message

Flags (serve, config):
  -supabase-url string   Hosted database endpoint; overrides the environment
  -supabase-key string   Hosted database anon key; overrides the environment

Environment:
  SITE_NAME, SITE_URL, SITE_DESCRIPTION, SITE_AUTHOR, ADDR, LOG_LEVEL
  ADMIN_PASSWORD or ADMIN_PASSWORD_HASH, SESSION_SECRET, COOKIE_SECURE
  DATABASE_PATH, WAITLIST_BACKEND (remote or sqlite), WAITLIST_DATABASE_PATH,
  WAITLIST_DATABASE_URL, WAITLIST_TABLE
  VITE_SUPABASE_URL / SUPABASE_URL, VITE_SUPABASE_ANON_KEY / SUPABASE_ANON_KEY
  ENGAGEMENT_ENABLED, ENGAGEMENT_DATABASE_PATH, ENGAGEMENT_RETENTION_DAYS
  REDIS_ADDR, ELASTICSEARCH_URL, ELASTICSEARCH_INDEX, GRPC_ADDR
  ASSETS_OPTIMIZE_TIMEOUT, STATIC_DIR`)
}

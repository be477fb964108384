package main

import (
	"fmt"
	"html/template"
	"log"
	"path/filepath"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/db"
	"commentbox/internal/events"
	"commentbox/internal/handlers"
	"commentbox/internal/middleware"
	"commentbox/internal/registry"
	"commentbox/internal/router"
	"commentbox/internal/services"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	config.Load()

	// Initialize Database
	db.Init()

	// Comment variants and the commentable types they can attach to.
	registry.Init()
	handlers.RegisterPageTarget()

	// Notify object owners about new comments.
	events.Subscribe(services.NotifyOnComment(services.NewMailService()))

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	store := cookie.NewStore([]byte(config.C.SecretKey))
	r.Use(sessions.Sessions("commentbox_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates("./web/templates")

	// Static Assets
	r.Static("/static", "./web/static")

	// Middleware
	r.Use(middleware.LoadUser())

	router.RegisterRoutes(r)

	log.Printf("commentbox server starting on :%s", config.C.Port)
	if err := r.Run(":" + config.C.Port); err != nil {
		log.Fatal(err)
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	// Comment partials double as includes so pages can embed a form or a
	// rendered list server-side.
	partials, err := filepath.Glob(templatesDir + "/comments/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"timeAgo": func(t interface{}) string {
			timeVal, ok := t.(time.Time)
			if !ok {
				return ""
			}
			seconds := int(time.Since(timeVal).Seconds())
			switch {
			case seconds < 60:
				return fmt.Sprintf("%ds ago", seconds)
			case seconds < 3600:
				return fmt.Sprintf("%dm ago", seconds/60)
			case seconds < 86400:
				return fmt.Sprintf("%dh ago", seconds/3600)
			case seconds < 2592000:
				return fmt.Sprintf("%dd ago", seconds/86400)
			}
			return timeVal.Format("2006-01-02")
		},
	}

	views := []string{
		"page_list.html",
		"page_detail.html",
		"page_form.html",
		"auth_login.html",
		"auth_register.html",
		"notification_list.html",
		"error.html",
	}
	for _, view := range views {
		r.AddFromFilesFuncs(view, funcMap, assemble(templatesDir+"/views/"+view)...)
	}

	return r
}

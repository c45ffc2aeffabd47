package main

import (
	"log"
	"os"

	"shiftfund/pkg/config"
	"shiftfund/pkg/ocr"
	"shiftfund/pkg/pipeline"
	"shiftfund/pkg/shift"
	"shiftfund/process/inbox"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	appCfg    config.Config
	jwtSecret []byte
	pipe      *pipeline.Pipeline
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	appCfg = cfg

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		log.Fatal("JWT secret not set (auth.jwt_secret or JWT_SECRET)")
	}
	jwtSecret = []byte(secret)

	initDB(cfg.Database.DSN, cfg.Database.AutoMigrate)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		log.Println("migrations complete")
		return
	}

	cal, err := shift.NewCalendar(cfg.Shifts.Timezone)
	if err != nil {
		log.Fatalf("shift calendar: %v", err)
	}
	engine := ocr.NewEngine(cfg.OCR.Language)
	pipe = pipeline.New(engine, cal)

	if cfg.Inbox.Dir != "" {
		w, err := inbox.New(db, pipe, cfg.Inbox.Dir, cfg.Inbox.CampaignID)
		if err != nil {
			log.Fatalf("inbox watcher: %v", err)
		}
		go w.Run()
		log.Printf("watching inbox %s for campaign %d", cfg.Inbox.Dir, cfg.Inbox.CampaignID)
	}

	r := gin.Default()
	setupRoutes(r)
	log.Printf("listening on %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

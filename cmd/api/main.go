package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ezrank_service/internal/app/config"
	"ezrank_service/internal/app/db"
	"ezrank_service/internal/app/handler"
	"ezrank_service/internal/app/model"
	"ezrank_service/internal/app/repository"
	"ezrank_service/internal/app/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbConn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := dbConn.AutoMigrate(&model.User{}, &model.Place{}, &model.Keyword{}, &model.Rank{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	userRepo := repository.NewUserRepository(dbConn)
	placeRepo := repository.NewPlaceRepository(dbConn)
	keywordRepo := repository.NewKeywordRepository(dbConn)
	rankRepo := repository.NewRankRepository(dbConn)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	rankService := service.NewRankService(rankRepo, placeRepo, keywordRepo, cfg.Timezone)
	exportService := service.NewExportService(rankRepo, service.ExportConfig{
		Endpoint:  cfg.CrawlServerURL,
		ChunkSize: cfg.ExportChunkSize,
		Pacing:    cfg.ExportPacing,
	})

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.NewAuthHandler(authService).Register(e)
	handler.NewRankHandler(rankService, exportService, authService).Register(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

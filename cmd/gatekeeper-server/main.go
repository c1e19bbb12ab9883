package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/smartcondominio/gatekeeper/internal/config"
	"github.com/smartcondominio/gatekeeper/internal/db"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/recognition"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/service"
	sqlitestore "github.com/smartcondominio/gatekeeper/internal/gatekeeper/store/sqlite"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
	"github.com/smartcondominio/gatekeeper/internal/httpapi"
)

func main() {
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		sugar.Fatalw("open database", "err", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			sugar.Fatalw("seed dev data", "err", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	vehicles := sqlitestore.NewVehicleStore(conn)
	visits := sqlitestore.NewVisitStore(conn)
	persons := sqlitestore.NewPersonStore(conn, writer)
	audit := sqlitestore.NewAuditStore(conn, writer)

	// Camera metadata
	cameraMap, err := config.LoadCameraMap(cfg.CameraConfigPath)
	if err != nil {
		sugar.Fatalw("load camera config", "err", err)
	}
	cameras := make(service.StaticCameras, len(cameraMap))
	for id, cam := range cameraMap {
		cameras[id] = service.CameraInfo{
			Direction: types.ParseDirection(cam.Direction),
			Region:    cam.Region,
		}
	}

	// Recognition gateways
	plateGW := recognition.NewPlateClient(recognition.PlateClientConfig{
		URL:     cfg.PlateAPIURL,
		Token:   cfg.PlateToken,
		Regions: cfg.PlateRegions,
		Timeout: cfg.RecognitionTimeout,
	}, sugar)

	var faceGW *recognition.FaceClient
	if cfg.FaceCollectionID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			sugar.Fatalw("load AWS config", "err", err)
		}
		faceGW = recognition.NewFaceClient(rekognition.NewFromConfig(awsCfg), recognition.FaceClientConfig{
			CollectionID: cfg.FaceCollectionID,
			ServiceFloor: cfg.FaceServiceFloor,
			Timeout:      cfg.RecognitionTimeout,
		}, sugar)
	} else {
		sugar.Warnw("face recognition disabled: GATEKEEPER_FACE_COLLECTION_ID not set")
	}

	// Services
	authz := service.NewAuthorizationReader(vehicles, visits, persons)
	deps := service.AccessServiceDeps{
		PlateGateway:  plateGW,
		Authorization: authz,
		Audit:         audit,
		Gate:          service.NewLogGateSink(sugar),
		Cameras:       cameras,
		Policy:        service.DecisionPolicy{FaceAllowThreshold: cfg.FaceAllowThreshold},
		Logger:        sugar,
	}
	var enrollSvc *service.EnrollmentService
	if faceGW != nil {
		deps.FaceGateway = faceGW
		enrollSvc = service.NewEnrollmentService(faceGW, persons, sugar)
	}
	accessSvc := service.NewAccessService(deps)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            sugar,
		Addr:              cfg.HTTPAddr,
		AccessService:     accessSvc,
		EnrollmentService: enrollSvc,
		AuditStore:        audit,
		OperatorTokens:    cfg.OperatorTokens,
	})

	go func() {
		sugar.Infow("listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.Start(); err != nil {
			sugar.Errorw("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/covalent-team/covalent/internal/bootstrap"
	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/modules/handler"
	"github.com/covalent-team/covalent/internal/router"
	"github.com/covalent-team/covalent/internal/telemetry"
)

func main() {
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer log.Sync()

	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Fatal("setup tracing", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	r := router.NewRouter(router.RouterDeps{
		Config:           cfg,
		DB:               do.MustInvoke[*gorm.DB](inj),
		Log:              log,
		ProjectHandler:   do.MustInvoke[*handler.ProjectHandler](inj),
		MemberHandler:    do.MustInvoke[*handler.MemberHandler](inj),
		ThreadHandler:    do.MustInvoke[*handler.ThreadHandler](inj),
		FileHandler:      do.MustInvoke[*handler.FileHandler](inj),
		AssistantHandler: do.MustInvoke[*handler.AssistantHandler](inj),
		ActivityHandler:  do.MustInvoke[*handler.ActivityHandler](inj),
		RoleHandler:      do.MustInvoke[*handler.RoleHandler](inj),
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	if err := inj.Shutdown(); err != nil {
		log.Warn("container shutdown", zap.Error(err))
	}
}

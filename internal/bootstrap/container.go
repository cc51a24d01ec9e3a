package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/infra/blob"
	"github.com/covalent-team/covalent/internal/infra/cache"
	"github.com/covalent-team/covalent/internal/infra/db"
	"github.com/covalent-team/covalent/internal/infra/logger"
	"github.com/covalent-team/covalent/internal/infra/provider"
	mq "github.com/covalent-team/covalent/internal/infra/queue"
	"github.com/covalent-team/covalent/internal/modules/handler"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/covalent-team/covalent/internal/modules/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}

		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(
				&model.User{},
				&model.Role{},
				&model.Permission{},
				&model.UserRole{},
				&model.RolePermission{},
				&model.Project{},
				&model.DocumentIndex{},
				&model.Assistant{},
				&model.ProjectMember{},
				&model.Thread{},
				&model.Message{},
				&model.File{},
				&model.FileAssociation{},
				&model.ActivityLog{},
			)
		}

		if err := EnsureSeedData(context.Background(), d, cfg, log); err != nil {
			return nil, err
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg)
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		cfg := do.MustInvoke[*config.Config](i)

		dialFn := func() (*amqp.Connection, error) {
			useTLS := cfg.RabbitMQ.EnableTLS || strings.HasPrefix(cfg.RabbitMQ.URL, "amqps://")

			if useTLS {
				tlsConfig := &tls.Config{
					MinVersion: tls.VersionTLS12,
				}
				url := cfg.RabbitMQ.URL
				if strings.HasPrefix(url, "amqp://") {
					url = strings.Replace(url, "amqp://", "amqps://", 1)
				}
				return amqp.DialTLS(url, tlsConfig)
			}

			return amqp.Dial(cfg.RabbitMQ.URL)
		}

		return dialFn, nil
	})

	// RabbitMQ Connection
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		dialFn := do.MustInvoke[mq.DialFunc](i)
		return dialFn()
	})

	// RabbitMQ Publisher
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conn := do.MustInvoke[*amqp.Connection](i)
		log := do.MustInvoke[*zap.Logger](i)
		dialFn := do.MustInvoke[mq.DialFunc](i)
		return mq.NewPublisher(conn, log, cfg, dialFn)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})

	// AI provider client
	do.Provide(inj, func(i *do.Injector) (provider.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		return provider.NewHTTPClient(cfg, log), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.RoleRepo, error) {
		return repo.NewRoleRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.MemberRepo, error) {
		return repo.NewMemberRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ThreadRepo, error) {
		return repo.NewThreadRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.MessageRepo, error) {
		return repo.NewMessageRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.FileRepo, error) {
		return repo.NewFileRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ActivityRepo, error) {
		return repo.NewActivityRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.AccessService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewAccessService(
			do.MustInvoke[repo.RoleRepo](i),
			do.MustInvoke[repo.MemberRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[*redis.Client](i),
			time.Duration(cfg.Auth.PermissionCacheTTLSec)*time.Second,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProvisionService, error) {
		return service.NewProvisionService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[provider.Client](i),
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.IngestService, error) {
		return service.NewIngestService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.FileRepo](i),
			do.MustInvoke[provider.Client](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ChatService, error) {
		return service.NewChatService(
			do.MustInvoke[repo.ThreadRepo](i),
			do.MustInvoke[repo.MessageRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[provider.Client](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ActivityService, error) {
		return service.NewActivityService(
			do.MustInvoke[repo.ActivityRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.ThreadRepo](i),
			do.MustInvoke[repo.MemberRepo](i),
			do.MustInvoke[repo.FileRepo](i),
			do.MustInvoke[*mq.Publisher](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.MemberRepo](i),
			do.MustInvoke[service.ProvisionService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.MemberService, error) {
		return service.NewMemberService(
			do.MustInvoke[repo.MemberRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[service.AccessService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.RoleService, error) {
		return service.NewRoleService(
			do.MustInvoke[repo.RoleRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[service.AccessService](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(
			do.MustInvoke[service.ProjectService](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.MemberHandler, error) {
		return handler.NewMemberHandler(
			do.MustInvoke[service.MemberService](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ThreadHandler, error) {
		return handler.NewThreadHandler(
			do.MustInvoke[service.ChatService](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.FileHandler, error) {
		return handler.NewFileHandler(
			do.MustInvoke[service.IngestService](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AssistantHandler, error) {
		return handler.NewAssistantHandler(
			do.MustInvoke[service.ProvisionService](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ActivityHandler, error) {
		return handler.NewActivityHandler(
			do.MustInvoke[service.ActivityService](i),
			do.MustInvoke[service.AccessService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.RoleHandler, error) {
		return handler.NewRoleHandler(
			do.MustInvoke[service.RoleService](i),
			do.MustInvoke[service.AccessService](i),
			do.MustInvoke[service.ActivityService](i),
		), nil
	})
	return inj
}

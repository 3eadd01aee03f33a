package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Artexxx/employee-registry/internal/api"
	"github.com/Artexxx/employee-registry/internal/config"
	"github.com/Artexxx/employee-registry/internal/exchange/consumer"
	"github.com/Artexxx/employee-registry/internal/exchange/producer"
	"github.com/Artexxx/employee-registry/internal/repository/employee"
	"github.com/Artexxx/employee-registry/internal/repository/events"
	"github.com/Artexxx/employee-registry/internal/validation"
	"github.com/Artexxx/employee-registry/library/mongodb"
	"github.com/Artexxx/employee-registry/library/yamlreader"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = time.RFC3339

	cfg := MustNewConfig(parseFlags())

	level, err := zerolog.ParseLevel(cfg.Log.LevelOrDefault())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("mongo_db", cfg.Mongo.Database.Value).Str("collection", cfg.Mongo.Collection.Value).Msg("mongo config")
	log.Info().Bool("enabled", cfg.Kafka.IsEnabled()).Msg("kafka config")

	mongoClient, err := mongodb.NewMongo(rootCtx, cfg.Mongo.URI.Value, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo init failed")
	}
	defer mongoClient.Close(context.Background())

	db := mongoClient.Database(cfg.Mongo.Database.Value)
	employeesColl := db.Collection(cfg.Mongo.Collection.Value)

	if err := employee.EnsureIndexes(rootCtx, employeesColl); err != nil {
		log.Fatal().Err(err).Msg("employee indexes init failed")
	}

	employeeRepo := employee.NewRepository(employeesColl, log.Logger)
	eventsRepo := events.NewRepository(db.Collection(events.EventsCollection), db.Collection(events.DLQCollection))
	validator := validation.New()

	deps := api.ServiceDeps{
		Port:         cfg.UserAPI.Port.Value,
		EmployeeRepo: employeeRepo,
		EventsRepo:   eventsRepo,
		Validator:    validator,
	}

	var importRunner *consumer.Runner

	if cfg.Kafka.IsEnabled() {
		employeeProducer, err := initEmployeeProducer(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka producer init failed")
		}
		defer func() { _ = employeeProducer.Close() }()

		deps.Publisher = employeeProducer

		importRunner = consumer.NewImportRunner(
			consumer.RunnerConfig{
				Brokers:  cfg.Kafka.Brokers(),
				GroupID:  cfg.Kafka.ImportGroup.Value,
				Topic:    cfg.Kafka.Topics.Import.Value,
				ClientID: cfg.Kafka.ClientID(),
			},
			eventsRepo,
			employeeRepo,
			validator,
			log.Logger,
		)
	}

	apiService := api.NewService(deps)

	group, gctx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		log.Info().Msg("запуск HTTP API")
		if err := apiService.Start(gctx); err != nil {
			log.Error().Err(err).Msg("HTTP API завершился с ошибкой")

			return err
		}

		log.Info().Msg("HTTP API остановлен")

		return nil
	})

	if importRunner != nil {
		group.Go(func() error {
			log.Info().Msg("запуск consumer_import")
			if err := importRunner.Start(gctx); err != nil {
				log.Error().Err(err).Msg("consumer_import завершился с ошибкой")

				return err
			}

			log.Info().Msg("consumer_import остановлен")

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		return
	}

	log.Info().Msg("all services stopped")
}

func initEmployeeProducer(kafkaConfig config.KafkaConfig) (*producer.EmployeeProducer, error) {
	sCfg := sarama.NewConfig()
	sCfg.Version = sarama.V3_3_2_0
	sCfg.Producer.Return.Successes = true
	sCfg.Producer.RequiredAcks = sarama.WaitForAll
	sCfg.Producer.Idempotent = true
	sCfg.Net.MaxOpenRequests = 1
	sCfg.Producer.Retry.Max = 5
	sCfg.Producer.Retry.Backoff = 200 * time.Millisecond
	if id := kafkaConfig.ClientID(); id != "" {
		sCfg.ClientID = id
	}

	sp, err := sarama.NewSyncProducer(kafkaConfig.Brokers(), sCfg)
	if err != nil {
		return nil, err
	}

	return producer.NewEmployeeProducer(
		sp,
		producer.Config{
			Topic:  kafkaConfig.Topics.Changes.Value,
			Source: "employee-registry",
		},
		log.Logger,
	), nil
}

func MustNewConfig(path string) *config.Config {
	cfg, err := yamlreader.NewConfig[config.Config](path)
	if err != nil {
		log.Fatal().Str("path", path).Err(err).Msg("ошибка чтения конфигурации приложения")
		return nil
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Str("path", path).Err(err).Msg("некорректная конфигурация приложения")
		return nil
	}

	return cfg
}

func parseFlags() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env должен быть загружен до чтения yaml: значения ${VAR} берутся из окружения
	_ = godotenv.Load(".env")

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/application-local.yaml"
	}
	return configPath
}

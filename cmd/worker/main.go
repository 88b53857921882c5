package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/companynet/internal/config"
	"github.com/OFFIS-RIT/companynet/internal/queue"
	"github.com/OFFIS-RIT/companynet/internal/storage"
	"github.com/OFFIS-RIT/companynet/internal/timing"
	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/export"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/leaselock"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/logger/console"
	"github.com/OFFIS-RIT/companynet/pkg/search/meili"
	pgstore "github.com/OFFIS-RIT/companynet/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	// search + graph client
	searcher, err := meili.NewClient(meili.NewClientParams{
		BaseURL:       cfg.MeiliURL,
		APIKey:        cfg.MeiliKey,
		Timeout:       cfg.MeiliTimeout,
		MaxRetries:    cfg.MeiliMaxRetries,
		RatePerSecond: cfg.MeiliRatePerSecond,
	})
	if err != nil {
		logger.Fatal("Could not create search client", "err", err)
	}
	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Searcher:     searcher,
		CompanyIndex: cfg.CompanyIndex,
		SeedLimit:    cfg.SeedLimit,
		MaxDepth:     cfg.MaxDepth,
	})
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	processor := &queue.Processor{Graph: graphClient}

	// Init pgx client
	if cfg.PersistsToDatabase() {
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		pgConn, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()
		networks := pgstore.NewNetworkDBStorageWithConnection(pgConn, pgstore.WithChunkSize(cfg.DBChunkSize))
		processor.Sinks = append(processor.Sinks, export.SinkFunc("postgres", networks.SaveNetwork))
		processor.Deleters = append(processor.Deleters, networks.DeleteNetwork)
		processor.Locker = leaselock.New(pgConn)
	}

	// Init s3 client
	if cfg.PersistsToS3() {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Could not create S3 client", "err", err)
		}
		processor.Sinks = append(processor.Sinks, storage.NewSink(client, cfg.S3Bucket))
		processor.Deleters = append(processor.Deleters, func(ctx context.Context, id string) error {
			return storage.DeleteNetwork(ctx, client, cfg.S3Bucket, id)
		})
	}

	if len(processor.Sinks) == 0 {
		logger.Warn("Neither DATABASE_URL nor AWS_BUCKET is set, built networks will not be stored")
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	processor.Events = ch

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.NetworkQueue:
					_, processingErr = processor.ProcessNetworkMessage(ctx, qm.msg.Body)
				case queue.DeleteQueue:
					processingErr = processor.ProcessDeleteMessage(ctx, qm.msg.Body)
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(ctx, consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				logger.Info("Processing time", "duration", timing.Since(startTime))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

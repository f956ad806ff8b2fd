package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pali-wallet/palid/internal/config"
	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	coingeckofeeder "github.com/pali-wallet/palid/internal/infrastructure/price-feeder/coingecko"
	webhookpubsub "github.com/pali-wallet/palid/internal/infrastructure/pubsub/webhook"
	"github.com/pali-wallet/palid/internal/infrastructure/signer"
	dbbadger "github.com/pali-wallet/palid/internal/infrastructure/storage/db/badger"
	"github.com/pali-wallet/palid/internal/infrastructure/storage/db/inmemory"
	"github.com/pali-wallet/palid/internal/infrastructure/txbuilder/syscoin"
	"github.com/pali-wallet/palid/internal/infrastructure/web3"
	"github.com/pali-wallet/palid/internal/interfaces"
	grpcinterface "github.com/pali-wallet/palid/internal/interfaces/grpc"
	"github.com/pali-wallet/palid/pkg/crawler"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/explorer/blockbook"
	"github.com/pali-wallet/palid/pkg/stats"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	d, err := newDaemon()
	if err != nil {
		log.WithError(err).Fatal("error while setting up daemon")
	}
	if err := d.start(); err != nil {
		d.stop()
		log.WithError(err).Fatal("error while starting daemon")
	}
	log.Info("palid started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-sigChan

	log.Info("shutting down daemon")
	d.stop()
	log.Info("exiting")
}

// daemon holds every long-living component so that they can be stopped in
// the reverse order they were started.
type daemon struct {
	repoManager ports.RepoManager
	webhooks    ports.PubSub
	web3Client  ports.Web3Client
	listener    application.BlockchainListener
	walletSvc   application.WalletService
	priceSvc    application.PriceService
	service     interfaces.Service

	cancelStats context.CancelFunc
}

func newDaemon() (*daemon, error) {
	d := &daemon{}
	datadir := config.GetDatadir()
	dbType := config.GetString(config.DBTypeKey)

	var err error
	switch dbType {
	case config.DBBadger:
		d.repoManager, err = dbbadger.NewRepoManager(config.GetDbDir(), dbLogger())
		if err != nil {
			return nil, err
		}
	default:
		d.repoManager = inmemory.NewRepoManager()
	}

	web3URL := config.GetString(config.Web3RPCURLKey)
	chainID := int64(config.GetInt(config.Web3ChainIDKey))
	networks := domain.NewNetworks(
		config.GetExplorerURL(config.MainNet), config.GetExplorerURL(config.TestNet),
		web3URL, chainID,
	)

	rateLimit := config.GetInt(config.ExplorerRateLimitKey)
	explorers := application.NewExplorerRegistry(
		networks, func(network domain.Network) (explorer.Service, error) {
			return blockbook.NewService(blockbook.Opts{
				URL:       network.ExplorerURL,
				RateLimit: rateLimit,
			})
		},
	)

	crawlerSvc := crawler.NewService(crawler.Opts{
		Interval:      config.GetDuration(config.PollIntervalKey),
		ExplorerLimit: rateLimit,
		ErrorHandler: func(err error) {
			log.WithError(err).Warn("an error occured while observing the blockchain")
		},
	})
	d.listener = application.NewBlockchainListener(crawlerSvc)

	if web3URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		d.web3Client, err = web3.NewClient(ctx, web3URL, chainID)
		cancel()
		if err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to connect to web3 rpc: %w", err)
		}
	}

	if !config.GetBool(config.NoWebhooksKey) {
		var pubsubDir string
		if dbType == config.DBBadger {
			pubsubDir = datadir
		}
		d.webhooks, err = webhookpubsub.NewService(pubsubDir, dbLogger())
		if err != nil {
			d.stop()
			return nil, err
		}
	}
	pubsubSvc := application.NewPubSubService(d.webhooks)

	network := domain.NetworkMain
	if config.GetString(config.NetworkKey) == config.TestNet {
		network = domain.NetworkTestnet
	}
	d.walletSvc, err = application.NewWalletService(
		d.repoManager, networks, explorers, pubsubSvc, network,
	)
	if err != nil {
		d.stop()
		return nil, err
	}

	accountSvc, err := application.NewAccountService(application.AccountServiceOpts{
		WalletService:       d.walletSvc,
		RepoManager:         d.repoManager,
		Explorers:           explorers,
		TxBuilder:           syscoin.NewTxBuilder(explorers),
		Signers:             signer.NewProvider(config.GetString(config.TrezorBridgeURLKey)),
		Web3Client:          d.web3Client,
		Listener:            d.listener,
		PubSub:              pubsubSvc,
		MinConfirmations:    config.GetInt(config.MinConfirmationsKey),
		ConfirmationTimeout: config.GetDuration(config.ConfirmationTimeoutKey),
		RefreshInterval:     config.GetDuration(config.AccountRefreshIntervalKey),
	})
	if err != nil {
		d.stop()
		return nil, err
	}

	feeder, err := coingeckofeeder.NewCoinGeckoPriceFeeder(
		config.GetString(config.PriceAPIURLKey),
		[]string{config.GetString(config.FiatCurrencyKey)},
		config.GetDuration(config.PriceUpdateIntervalKey),
	)
	if err != nil {
		d.stop()
		return nil, err
	}
	d.priceSvc = application.NewPriceService(
		feeder, d.repoManager, config.GetString(config.FiatCurrencyKey),
	)

	d.service, err = grpcinterface.NewService(grpcinterface.ServiceOpts{
		Port:                     config.GetInt(config.ListeningPortKey),
		WalletSvc:                d.walletSvc,
		AccountSvc:               accountSvc,
		ConnectionsSvc:           application.NewConnectionsService(d.repoManager, pubsubSvc),
		ContactsSvc:              application.NewContactsService(d.repoManager, networks),
		PriceSvc:                 d.priceSvc,
		PubSubSvc:                pubsubSvc,
		AllowedOrigins:           config.GetStringSlice(config.AllowedOriginsKey),
		ExtensionIDs:             config.GetStringSlice(config.ExtensionIDsKey),
		WalletUnlockPasswordFile: config.GetString(config.WalletUnlockPasswordFile),
	})
	if err != nil {
		d.stop()
		return nil, err
	}
	return d, nil
}

func (d *daemon) start() error {
	if config.GetBool(config.EnableProfilerKey) {
		ctx, cancel := context.WithCancel(context.Background())
		d.cancelStats = cancel
		stats.EnableMemoryStatistics(
			ctx, time.Duration(config.GetInt(config.StatsIntervalKey))*time.Second,
			filepath.Join(config.GetDatadir(), config.ProfilerLocation),
		)
	}

	d.listener.StartObservation()

	if err := d.priceSvc.Start(); err != nil {
		return fmt.Errorf("failed to start price service: %w", err)
	}
	return d.service.Start()
}

func (d *daemon) stop() {
	if d.service != nil {
		d.service.Stop()
		log.Debug("stopped interfaces")
	}
	if d.priceSvc != nil {
		d.priceSvc.Stop()
		log.Debug("stopped price service")
	}
	if d.walletSvc != nil {
		d.walletSvc.Close()
		log.Debug("closed wallet service")
	}
	if d.listener != nil {
		d.listener.StopObservation()
		log.Debug("stopped observing blockchain")
	}
	if d.web3Client != nil {
		d.web3Client.Close()
	}
	if d.webhooks != nil {
		if err := d.webhooks.Close(); err != nil {
			log.WithError(err).Warn("failed to close webhook store")
		}
		log.Debug("closed webhook store")
	}
	if d.repoManager != nil {
		d.repoManager.Close()
		log.Debug("closed connection with db")
	}
	if d.cancelStats != nil {
		d.cancelStats()
	}
}

// dbLogger routes the logs of badger through logrus in debug mode only.
func dbLogger() badger.Logger {
	if log.GetLevel() < log.DebugLevel {
		return nil
	}
	return log.StandardLogger()
}

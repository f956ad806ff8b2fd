package grpcinterface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/interfaces"
	businterface "github.com/pali-wallet/palid/internal/interfaces/bus"
	"github.com/pali-wallet/palid/internal/interfaces/grpc/interceptor"
	httpinterface "github.com/pali-wallet/palid/internal/interfaces/http"
	log "github.com/sirupsen/logrus"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 5 * time.Second

// ServiceOpts defines the services exposed on the listening port and how
// they are served. PriceSvc is optional.
type ServiceOpts struct {
	Port int

	WalletSvc      application.WalletService
	AccountSvc     application.AccountService
	ConnectionsSvc application.ConnectionsService
	ContactsSvc    application.ContactsService
	PriceSvc       application.PriceService
	PubSubSvc      application.PubSubService

	AllowedOrigins           []string
	ExtensionIDs             []string
	WalletUnlockPasswordFile string
}

func (o ServiceOpts) validate() error {
	if o.Port <= 1024 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if o.WalletUnlockPasswordFile != "" {
		if _, err := os.Stat(o.WalletUnlockPasswordFile); err != nil {
			return fmt.Errorf("wallet unlock password file not found")
		}
	}
	if o.WalletSvc == nil {
		return fmt.Errorf("wallet app service must not be null")
	}
	if o.PubSubSvc == nil {
		return fmt.Errorf("pubsub app service must not be null")
	}
	return nil
}

func (o ServiceOpts) address() string {
	return fmt.Sprintf(":%d", o.Port)
}

type service struct {
	opts ServiceOpts

	grpcServer   *grpc.Server
	healthServer *health.Server
	httpServer   *http.Server
	hub          *businterface.Hub
	mux          cmux.CMux

	walletPassword string

	lock    sync.Mutex
	started bool
}

// NewService returns the service serving, on a single port, the gRPC health
// service, its grpc-web wrapper, the HTTP API and the websocket message bus.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	var walletPassword string
	if opts.WalletUnlockPasswordFile != "" {
		walletPasswordBytes, err := os.ReadFile(opts.WalletUnlockPasswordFile)
		if err != nil {
			return nil, err
		}

		trimmedPass := bytes.TrimFunc(walletPasswordBytes, func(r rune) bool {
			return r == 10 || r == 32
		})

		walletPassword = string(trimmedPass)
	}

	api, err := httpinterface.NewHandler(httpinterface.HandlerOpts{
		WalletSvc:      opts.WalletSvc,
		AccountSvc:     opts.AccountSvc,
		ConnectionsSvc: opts.ConnectionsSvc,
		ContactsSvc:    opts.ContactsSvc,
		PriceSvc:       opts.PriceSvc,
		PubSubSvc:      opts.PubSubSvc,
	})
	if err != nil {
		return nil, err
	}
	hub, err := businterface.NewHub(businterface.HubOpts{
		WalletSvc:      opts.WalletSvc,
		AccountSvc:     opts.AccountSvc,
		ConnectionsSvc: opts.ConnectionsSvc,
		AllowedOrigins: opts.AllowedOrigins,
		ExtensionIDs:   opts.ExtensionIDs,
	})
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer(
		interceptor.UnaryInterceptor(), interceptor.StreamInterceptor(),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	svc := &service{
		opts:           opts,
		grpcServer:     grpcServer,
		healthServer:   healthServer,
		httpServer:     newHTTPServer(opts.address(), grpcServer, hub, api),
		hub:            hub,
		walletPassword: walletPassword,
	}
	opts.PubSubSvc.AddListener(hub)
	opts.PubSubSvc.AddListener(application.EventListenerFunc(svc.onEvent))
	return svc, nil
}

func (s *service) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started {
		return nil
	}

	ctx := context.Background()
	if s.walletPassword != "" {
		err := s.opts.WalletSvc.Unlock(ctx, s.walletPassword)
		switch {
		case err == nil:
			s.walletPassword = ""
			log.Info("wallet unlocked with password file")
		case errors.Is(err, application.ErrWalletNotInitialized):
			log.Warn("wallet not initialized, skipping unlock with password file")
		default:
			return fmt.Errorf("failed to unlock wallet with password file: %w", err)
		}
	}

	status, err := s.opts.WalletSvc.Status(ctx)
	if err != nil {
		return err
	}
	s.setServingStatus(status.Unlocked)

	mux, err := serveMux(s.opts.address(), s.grpcServer, s.httpServer)
	if err != nil {
		return err
	}
	s.mux = mux
	s.started = true

	log.Infof("http, websocket and grpc interfaces are listening on %s", s.opts.address())
	return nil
}

func (s *service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.started {
		return
	}

	log.Debug("stop message bus")
	s.hub.Stop()

	log.Debug("stop http server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
	}

	log.Debug("stop grpc server")
	s.healthServer.Shutdown()
	s.grpcServer.GracefulStop()

	log.Debug("stop mux")
	s.mux.Close()
	s.started = false
}

func (s *service) onEvent(event application.Event) {
	switch event.Type {
	case application.EventWalletUnlocked:
		s.setServingStatus(true)
	case application.EventWalletLocked:
		s.setServingStatus(false)
	}
}

// setServingStatus reports the overall health of the daemon, that serves
// requests only while the wallet is unlocked.
func (s *service) setServingStatus(unlocked bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if unlocked {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus("", status)
}

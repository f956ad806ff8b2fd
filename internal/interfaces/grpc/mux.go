package grpcinterface

import (
	"net"
	"net/http"
	"strings"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	log "github.com/sirupsen/logrus"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
)

const busPath = "/bus"

// serveMux listens on address and routes gRPC requests to grpcServer and
// every HTTP/1 request, websocket upgrades included, to httpServer.
func serveMux(
	address string, grpcServer *grpc.Server, httpServer *http.Server,
) (cmux.CMux, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(
		cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"),
	)
	httpL := mux.Match(cmux.HTTP1Fast())

	go func() {
		if err := grpcServer.Serve(grpcL); err != nil {
			log.WithError(err).Debug("grpc server stopped")
		}
	}()
	go func() {
		if err := httpServer.Serve(httpL); err != nil &&
			err != http.ErrServerClosed {
			log.WithError(err).Debug("http server stopped")
		}
	}()
	go func() {
		if err := mux.Serve(); err != nil {
			log.WithError(err).Debug("mux stopped")
		}
	}()
	return mux, nil
}

// httpHandler routes grpc-web requests to the wrapped gRPC server, the
// upgrades of the message bus to the hub and everything else to the API.
type httpHandler struct {
	grpcWebServer *grpcweb.WrappedGrpcServer
	bus           http.Handler
	api           http.Handler
}

func (h *httpHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	switch {
	case isValidRequest(req):
		h.grpcWebServer.ServeHTTP(resp, req)
	case req.URL.Path == busPath:
		h.bus.ServeHTTP(resp, req)
	default:
		h.api.ServeHTTP(resp, req)
	}
}

func newHTTPServer(
	addr string, grpcServer *grpc.Server, bus, api http.Handler,
) *http.Server {
	grpcWebServer := grpcweb.WrapServer(
		grpcServer,
		grpcweb.WithCorsForRegisteredEndpointsOnly(false),
		grpcweb.WithOriginFunc(func(origin string) bool { return true }),
	)
	handler := &httpHandler{grpcWebServer, bus, api}
	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}
}

func isValidRequest(req *http.Request) bool {
	return isValidGrpcWebOptionRequest(req) || isValidGrpcWebRequest(req)
}

func isValidGrpcWebRequest(req *http.Request) bool {
	return req.Method == http.MethodPost &&
		isValidGrpcContentTypeHeader(req.Header.Get("content-type"))
}

func isValidGrpcContentTypeHeader(contentType string) bool {
	return strings.HasPrefix(contentType, "application/grpc-web-text") ||
		strings.HasPrefix(contentType, "application/grpc-web")
}

func isValidGrpcWebOptionRequest(req *http.Request) bool {
	accessControlHeader := req.Header.Get("Access-Control-Request-Headers")
	return req.Method == http.MethodOptions &&
		strings.Contains(accessControlHeader, "x-grpc-web") &&
		strings.Contains(accessControlHeader, "content-type")
}

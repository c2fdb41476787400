package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/shared/auth"
)

type Targets struct {
	Market string
	Wallet string
	Pool   string
}

func rp(to string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("upstream", u.Host), zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return p, nil
}

// NewHandler monta as rotas públicas do gateway:
//
//	/api/markets/* -> market-service (/markets/*)
//	/api/wallet/*  -> wallet-service (/wallet/*), exceto rotas internas de escrow
//	/api/pool/*    -> pool-service (/v1/markets/*, /ws)
func NewHandler(t Targets, log *zap.Logger) (http.Handler, error) {
	market, err := rp(t.Market, log)
	if err != nil {
		return nil, err
	}
	wallet, err := rp(t.Wallet, log)
	if err != nil {
		return nil, err
	}
	pool, err := rp(t.Pool, log)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	mux.Handle("/api/markets", http.StripPrefix("/api", market))
	mux.Handle("/api/markets/", http.StripPrefix("/api", market))

	// vaults e transfers são só para o market-service
	mux.Handle("/api/wallet/vaults", http.NotFoundHandler())
	mux.Handle("/api/wallet/transfer", http.NotFoundHandler())
	mux.Handle("/api/wallet", http.StripPrefix("/api", wallet))
	mux.Handle("/api/wallet/", http.StripPrefix("/api", wallet))

	mux.Handle("/api/pool/", http.StripPrefix("/api/pool", pool))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return withCORS(mux), nil
}

func withCORS(h http.Handler) http.Handler {
	allowHeaders := "Content-Type, Authorization, " + auth.HeaderCallerID + ", " + auth.HeaderAPIKey
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	ckerrors "github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/license"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/storage"
)

const (
	defaultAddr     = ":8374"
	shutdownTimeout = 5 * time.Second
)

// serveCommand creates the serve command exposing stored results over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored run results over a read-only HTTP API",
		Long: `Serve exposes stored run results:

  GET /api/results                      list run names
  GET /api/result?name=X                full run result
  GET /api/packages?name=X              packages of a run
  GET /api/packages/{id}/license?name=X effective license of one package

Package ids are ":"-joined coordinates, URL-escaped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	store, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(store),
		BaseContext: func(net.Listener) context.Context {
			return withLogger(ctx, c.Logger)
		},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	c.Logger.Info("results API listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newRouter builds the read-only results API.
func newRouter(store storage.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/results", func(w http.ResponseWriter, req *http.Request) {
		names, err := store.List(req.Context())
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, map[string]any{"results": names})
	})

	r.Get("/api/result", func(w http.ResponseWriter, req *http.Request) {
		result, err := loadNamed(req, store)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, result)
	})

	r.Get("/api/packages", func(w http.ResponseWriter, req *http.Request) {
		result, err := loadNamed(req, store)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, map[string]any{"packages": result.Analyzer.Packages})
	})

	r.Get("/api/packages/{id}/license", func(w http.ResponseWriter, req *http.Request) {
		result, err := loadNamed(req, store)
		if err != nil {
			writeError(w, req, err)
			return
		}
		rawID := chi.URLParam(req, "id")
		if unescaped, err := url.PathUnescape(rawID); err == nil {
			rawID = unescaped
		}
		id, err := model.ParseIdentifier(rawID)
		if err != nil {
			writeError(w, req, err)
			return
		}

		in, err := buildInput(result, nil)
		if err != nil {
			writeError(w, req, err)
			return
		}
		var pkg model.Package
		found := false
		for _, p := range in.Packages {
			if p.ID == id {
				pkg, found = p, true
				break
			}
		}
		if !found {
			writeError(w, req, ckerrors.New(ckerrors.ErrCodePackageNotFound, "package %s not in run %q", id, result.Name))
			return
		}

		expr := in.EffectiveLicense(pkg)
		writeJSON(w, map[string]any{
			"id":      id,
			"license": expr,
			"view":    string(license.ViewConcludedOrDeclaredAndDetected),
		})
	})

	return r
}

func loadNamed(req *http.Request, store storage.Store) (*storage.RunResult, error) {
	name := req.URL.Query().Get("name")
	if name == "" {
		return nil, ckerrors.New(ckerrors.ErrCodeInvalidInput, "missing required query parameter %q", "name")
	}
	return store.Load(req.Context(), name)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes to HTTP statuses and logs server-side faults.
func writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	switch ckerrors.GetCode(err) {
	case ckerrors.ErrCodeResultNotFound, ckerrors.ErrCodePackageNotFound:
		status = http.StatusNotFound
	case ckerrors.ErrCodeInvalidInput, ckerrors.ErrCodeInvalidIdentifier:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		loggerFromContext(req.Context()).Error("request failed", "path", req.URL.Path, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": ckerrors.UserMessage(err)})
}

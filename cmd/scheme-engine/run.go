package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/client"
	"github.com/iwvelando/scheme-engine/internal/config"
	"github.com/iwvelando/scheme-engine/internal/duplicates"
	"github.com/iwvelando/scheme-engine/internal/export"
	"github.com/iwvelando/scheme-engine/internal/presets"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/internal/server"
	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/internal/workspace"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/output"
)

type options struct {
	serve        bool
	serverConfig string
	kind         string
	role         string
	preset       string
	discount     string
	code         string
	startDate    string
	endDate      string
	xlsxPath     string
	submit       bool
	exportID     string
	exportFormat string
	outputFormat string
}

type app struct {
	conf    *config.Configuration
	opts    options
	logger  *zap.Logger
	kind    scheme.Kind
	session *session.TokenSession
	client  *client.Client
}

func newApp(conf *config.Configuration, opts options, logger *zap.Logger) (*app, error) {
	kind, err := scheme.ParseKind(opts.kind)
	if err != nil {
		return nil, err
	}
	timeout, err := conf.Timeout()
	if err != nil {
		return nil, err
	}
	sess, err := newSession(conf.API.Token, opts.role, logger)
	if err != nil {
		return nil, err
	}
	sess.OnExpire(func() {
		logger.Warn("api session expired", zap.String("op", "main.session"))
	})
	return &app{
		conf:    conf,
		opts:    opts,
		logger:  logger,
		kind:    kind,
		session: sess,
		client:  client.New(conf.API.BaseURL, sess, client.WithTimeout(timeout), client.WithLogger(logger)),
	}, nil
}

// newSession reads the user from a JWT token. Opaque tokens get the role
// given on the command line.
func newSession(token, role string, logger *zap.Logger) (*session.TokenSession, error) {
	if token == "" {
		return session.Anonymous(), nil
	}
	if sess, err := session.FromToken(token); err == nil {
		return sess, nil
	} else if role == "" {
		logger.Debug("api token is not a JWT, using viewer role",
			zap.String("op", "main.newSession"),
			zap.Error(err),
		)
	}
	r, err := session.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return session.New(token, session.User{ID: "cli", Name: "cli", Role: r}, time.Time{}), nil
}

// loadPage fetches the master data and builds the scheme creation page.
func (a *app) loadPage(ctx context.Context) (*workspace.Page, error) {
	products, err := a.client.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	distributors, err := a.client.Distributors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load distributors: %w", err)
	}
	strategy, err := a.conf.Strategy(a.kind)
	if err != nil {
		return nil, err
	}

	a.logger.Info("loaded master data",
		zap.String("op", "main.loadPage"),
		zap.String("kind", string(a.kind)),
		zap.Int("products", len(products)),
		zap.Int("distributors", len(distributors)),
		zap.String("strategy", strategy.Name()),
	)
	return workspace.NewPage(a.kind, products, distributors, strategy, workspace.Options{
		OptionSampleLimit: a.conf.Engine.OptionSampleLimit,
		ChunkSize:         a.conf.Engine.FilterChunkSize,
		DeferThreshold:    a.conf.Engine.DeferThreshold,
		Logger:            a.logger,
	}), nil
}

// batch loads the page, applies the preset and discount to the products,
// prints the result and optionally writes a preview or submits the draft.
func (a *app) batch(ctx context.Context, w io.Writer) error {
	page, err := a.loadPage(ctx)
	if err != nil {
		return err
	}

	if a.opts.preset != "" {
		store := presets.NewStore(a.client, presets.Product, a.logger)
		if _, err := store.Refresh(ctx); err != nil {
			return err
		}
		filters, err := store.Filters(a.opts.preset)
		if err != nil {
			return err
		}
		if _, err := page.Products.Dispatch(ctx, workspace.Action{Type: workspace.ApplyPreset, Filters: filters}); err != nil {
			return err
		}
	}
	if a.opts.discount != "" {
		res, err := page.Products.Dispatch(ctx, workspace.Action{Type: workspace.ApplyDiscount, Value: a.opts.discount})
		if err != nil {
			return err
		}
		a.logger.Info("applied discount",
			zap.String("op", "main.batch"),
			zap.Int("updated", res.Discount.Updated),
		)
	}

	// Batch mode targets everything still visible
	if _, err := page.Products.Dispatch(ctx, workspace.Action{Type: workspace.SelectAll}); err != nil {
		return err
	}
	targets := page.Distributors
	if page.Groups != nil {
		targets = page.Groups
	}
	if _, err := targets.Dispatch(ctx, workspace.Action{Type: workspace.SelectAll}); err != nil {
		return err
	}

	view := page.Products.Snapshot(0)
	switch a.opts.outputFormat {
	case constants.OutputFormatCSV:
		err = output.CsvFormat(w, view)
	default:
		err = output.PrettyFormat(w, view)
	}
	if err != nil {
		return err
	}

	if a.opts.xlsxPath == "" && !a.opts.submit {
		return nil
	}

	code := a.opts.code
	if code == "" {
		code = scheme.GenerateCode()
	}
	draft := page.Draft(code, a.opts.startDate, a.opts.endDate)
	payload, err := draft.Payload()
	if err != nil {
		return err
	}
	if a.opts.outputFormat == constants.OutputFormatPretty {
		if err := output.PrettyPayload(w, payload); err != nil {
			return err
		}
	}

	if a.opts.xlsxPath != "" {
		if err := export.SaveAs(a.opts.xlsxPath, payload, page.Products.CustomColumns()); err != nil {
			return err
		}
		a.logger.Info("wrote scheme preview",
			zap.String("op", "main.batch"),
			zap.String("path", a.opts.xlsxPath),
		)
	}
	if a.opts.submit {
		receipt, err := scheme.NewService(a.client, a.session, a.logger).Submit(ctx, draft)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Submitted scheme %s (id %s, status %s)\n", receipt.SchemeCode, receipt.ID, receipt.Status)
		return err
	}
	return nil
}

// downloadExport downloads a rendered scheme into the working directory.
func (a *app) downloadExport(ctx context.Context) error {
	name := a.opts.code
	if name == "" {
		name = a.opts.exportID
	}
	file, err := scheme.NewService(a.client, a.session, a.logger).Export(ctx, a.kind, a.opts.exportID, name, a.opts.exportFormat)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file.Name, file.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file.Name, err)
	}
	a.logger.Info("downloaded scheme export",
		zap.String("op", "main.export"),
		zap.String("file", file.Name),
		zap.Int("bytes", len(file.Data)),
	)
	return nil
}

// serve runs the workspace JSON API until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	serverConf, err := server.LoadConfig(a.opts.serverConfig)
	if err != nil {
		return err
	}
	page, err := a.loadPage(ctx)
	if err != nil {
		return err
	}

	logger := a.logger
	if serverConf.Logging.Level != "" || serverConf.Logging.Format != "" || serverConf.Logging.OutputFile != "" {
		if logger, err = initializeLogger(serverConf.Logging, ""); err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
	}

	stores := map[string]*presets.Store{
		workspace.ProductsTable:     presets.NewStore(a.client, presets.Product, logger),
		workspace.DistributorsTable: presets.NewStore(a.client, presets.Distributor, logger),
	}
	for table, store := range stores {
		// A failed load is retried by the first save
		if _, err := store.Refresh(ctx); err != nil {
			logger.Warn("failed to preload filter presets",
				zap.String("op", "main.serve"),
				zap.String("table", table),
				zap.Error(err),
			)
		}
	}

	handler := server.NewHandler(server.Deps{
		Logger:          logger,
		Page:            page,
		Presets:         stores,
		Schemes:         scheme.NewService(a.client, a.session, logger),
		Cleaner:         duplicates.NewCleaner(a.client, a.session, logger),
		MaxRequestSize:  serverConf.RequestSizeBytes(),
		PreviewRowLimit: serverConf.PreviewRowLimit,
		Version:         version,
	})

	srv := &http.Server{
		Addr:              serverConf.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving workspace API",
			zap.String("op", "main.serve"),
			zap.String("address", serverConf.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	logger.Info("workspace API stopped", zap.String("op", "main.serve"))
	return nil
}

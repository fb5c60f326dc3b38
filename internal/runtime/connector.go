package runtime

import (
	"context"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
)

// ConnectorRequest asks the executor to run a knowledge connector.
type ConnectorRequest struct {
	Extension string         `json:"extension"`
	Connector string         `json:"connector"`
	Config    map[string]any `json:"config"`
}

// ConnectorSummary is the outcome of a connector run.
type ConnectorSummary struct {
	Extension string        `json:"extension"`
	Connector string        `json:"connector"`
	Sources   int           `json:"sources"`
	Chunks    int           `json:"chunks"`
	Skipped   []string      `json:"skipped,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// RunConnector validates the request and runs the connector against the configured
// ingestor. Items the connector skipped are listed in the summary; the run itself only
// fails when the connector returns an error.
func (e *Executor) RunConnector(ctx context.Context, req ConnectorRequest) (*ConnectorSummary, error) {
	kc, err := e.registry.Connector(req.Extension, req.Connector)
	if err != nil {
		return nil, err
	}
	if e.ingestor == nil {
		return nil, ErrNoIngestor
	}

	cfg, err := applySchema(kc.Fields, req.Config)
	if err != nil {
		return nil, err
	}

	conn, err := e.resolveConnection(ctx, req.Extension, kc.Connection, cfg)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("extension", req.Extension, "connector", req.Connector)
	run := &domain.ConnectorRun{
		Extension:  req.Extension,
		Connector:  req.Connector,
		Config:     cfg,
		Connection: conn,
		Logger:     logger,
		Ingestor:   e.ingestor,
	}

	start := time.Now()
	runErr := kc.Function(ctx, run)
	report := run.Report()

	if e.hooks.OnConnectorRun != nil {
		e.hooks.OnConnectorRun(ctx, &domain.ConnectorEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventConnectorRun},
			Extension: req.Extension,
			Connector: req.Connector,
			Report:    report,
			Duration:  time.Since(start),
			IsError:   runErr != nil,
		})
	}

	summary := &ConnectorSummary{
		Extension: req.Extension,
		Connector: req.Connector,
		Sources:   report.Sources,
		Chunks:    report.Chunks,
		Skipped:   report.Skipped,
		Duration:  time.Since(start),
	}
	if runErr != nil {
		logger.Error("knowledge connector failed", "err", runErr)
		return summary, runErr
	}
	logger.Info("knowledge connector finished", "sources", report.Sources, "chunks", report.Chunks, "skipped", len(report.Skipped))
	return summary, nil
}

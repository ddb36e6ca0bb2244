// Package pipeline wires the scoring stages together: feature engineering,
// anomaly detection, ensemble prediction, risk scoring, and the terminal
// decision policy. One Service instance handles all concurrent requests;
// the only shared state is the immutable artifact bundle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentra-io/sentra/internal/anomaly"
	"github.com/sentra-io/sentra/internal/artifact"
	"github.com/sentra-io/sentra/internal/decision"
	"github.com/sentra-io/sentra/internal/ensemble"
	"github.com/sentra-io/sentra/internal/feature"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/history"
	"github.com/sentra-io/sentra/internal/idgen"
	"github.com/sentra-io/sentra/internal/logging"
	"github.com/sentra-io/sentra/internal/metrics"
	"github.com/sentra-io/sentra/internal/retry"
	"github.com/sentra-io/sentra/internal/scoring"
	"github.com/sentra-io/sentra/internal/syncutil"
	"github.com/sentra-io/sentra/internal/traces"
	"github.com/sentra-io/sentra/internal/velocity"
)

// Result is the complete scoring output for one transaction: the terminal
// decision plus the supporting evidence for audit and narration.
type Result struct {
	Decision   *decision.Decision   `json:"decision"`
	Score      *scoring.Score       `json:"risk_score"`
	Anomalies  *anomaly.Report      `json:"anomalies"`
	Prediction *ensemble.Prediction `json:"prediction,omitempty"`
	Velocity   *velocity.Check      `json:"velocity"`
	Alert      *decision.Alert      `json:"alert,omitempty"`
}

// Service runs the scoring pipeline. Safe for concurrent use.
type Service struct {
	artifacts *artifact.Lazy
	detector  *anomaly.Detector
	scorer    *scoring.Scorer
	policy    *decision.Policy

	decisions decision.Store
	baselines history.Store // optional

	// foldApproved updates the customer baseline with approved
	// transactions so future scoring sees them.
	foldApproved bool
	folds        syncutil.ShardedMutex
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithBaselines attaches a customer baseline store. Known customers are
// looked up when the caller supplies no history.
func WithBaselines(store history.Store) Option {
	return func(s *Service) { s.baselines = store }
}

// WithBaselineFolding makes the service fold approved transactions back
// into the customer baseline. Requires WithBaselines.
func WithBaselineFolding() Option {
	return func(s *Service) { s.foldApproved = true }
}

// New creates the scoring service over a lazily loaded artifact bundle and
// a decision audit store.
func New(artifacts *artifact.Lazy, decisions decision.Store, opts ...Option) *Service {
	s := &Service{
		artifacts: artifacts,
		detector:  anomaly.NewDetector(),
		scorer:    scoring.NewScorer(),
		policy:    decision.NewPolicy(),
		decisions: decisions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs the full pipeline for one transaction.
//
// Structural failures are returned as typed errors: ErrInvalidInput for a
// rejected transaction, ErrArtifactUnavailable when the bundle cannot load,
// ErrEncoderContract on a feature/encoder mismatch. Anything unexpected
// inside the pipeline degrades to a MANUAL_REVIEW fallback decision rather
// than an error; the caller always gets either a typed error or a complete
// decision, never both and never neither.
func (s *Service) Score(ctx context.Context, tx *fraud.Transaction, hist *fraud.CustomerHistory) (result *Result, err error) {
	ctx, span := traces.StartSpan(ctx, "pipeline.Score",
		traces.TransactionID(tx.ID),
		traces.Amount(tx.Amount),
	)
	defer span.End()

	ctx = logging.WithTransactionID(ctx, tx.ID)

	start := time.Now()
	defer func() {
		metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("scoring pipeline panicked", "panic", fmt.Sprint(r))
			result, err = s.fallback(ctx, tx), nil
		}
	}()

	bundle, err := s.artifacts.Get()
	if err != nil {
		return nil, err
	}

	if hist == nil {
		hist = s.lookupBaseline(ctx, tx.CustomerID)
	}

	fs, err := s.engineer(ctx, bundle, tx, hist)
	if err != nil {
		if errors.Is(err, fraud.ErrInvalidInput) {
			return nil, err
		}
		logging.L(ctx).Error("feature engineering failed", "error", err)
		return s.fallback(ctx, tx), nil
	}

	report := s.detect(ctx, fs, hist)

	pred, err := s.predict(ctx, bundle, fs)
	if err != nil {
		if errors.Is(err, fraud.ErrEncoderContract) {
			return nil, err
		}
		// Every member failed. Degrade to anomaly-only scoring.
		logging.L(ctx).Warn("ensemble unavailable, scoring on anomalies only", "error", err)
		pred = nil
	}

	vel := velocity.Evaluate(hist)
	score := s.scorer.Score(pred, report, fs, vel)
	if score.Override {
		metrics.OverridesTotal.Inc()
	}
	metrics.RiskScores.Observe(float64(score.Total))

	d := s.policy.Decide(score, report, pred)
	d.ID = idgen.WithPrefix("dec_")
	d.TransactionID = tx.ID
	d.CustomerID = tx.CustomerID
	d.DecidedAt = time.Now().UTC()

	if vel.Triggered {
		d.KeyFactors = append(d.KeyFactors, vel.Explanation)
	}

	s.observe(report, pred)
	metrics.DecisionsTotal.WithLabelValues(string(d.Action)).Inc()
	span.SetAttributes(traces.RiskScore(score.Total), traces.Action(string(d.Action)))

	res := &Result{
		Decision:   d,
		Score:      score,
		Anomalies:  report,
		Prediction: pred,
		Velocity:   vel,
		Alert:      decision.AlertFor(d),
	}
	if res.Alert != nil {
		metrics.AlertsTotal.WithLabelValues(string(res.Alert.Level)).Inc()
		logging.L(ctx).Warn("risk alert",
			"level", res.Alert.Level,
			"action", d.Action,
			"score", score.Total,
		)
	}

	s.record(ctx, d)
	s.maybeFold(ctx, tx, hist, fs, d)

	logging.L(ctx).Info("transaction scored",
		"action", d.Action,
		"score", score.Total,
		"band", score.Band,
		"anomalies", report.TriggeredCount,
	)
	return res, nil
}

func (s *Service) engineer(ctx context.Context, bundle *artifact.Bundle, tx *fraud.Transaction, hist *fraud.CustomerHistory) (*feature.FeatureSet, error) {
	_, span := traces.StartSpan(ctx, "pipeline.EngineerFeatures")
	defer span.End()
	eng := feature.NewEngineer(bundle.Merchants, bundle.Categories)
	return eng.Engineer(tx, hist)
}

func (s *Service) detect(ctx context.Context, fs *feature.FeatureSet, hist *fraud.CustomerHistory) *anomaly.Report {
	_, span := traces.StartSpan(ctx, "pipeline.DetectAnomalies")
	defer span.End()
	return s.detector.Detect(fs, hist)
}

func (s *Service) predict(ctx context.Context, bundle *artifact.Bundle, fs *feature.FeatureSet) (*ensemble.Prediction, error) {
	ctx, span := traces.StartSpan(ctx, "pipeline.Predict")
	defer span.End()

	pred, err := ensemble.NewPredictor(bundle.Encoder, bundle.Models, bundle.Weights)
	if err != nil {
		return nil, err
	}
	p, err := pred.Predict(ctx, fs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.Consensus(p.Consensus))
	return p, nil
}

// fallback emits the System Error decision and still records it for audit.
func (s *Service) fallback(ctx context.Context, tx *fraud.Transaction) *Result {
	d := s.policy.Fallback(tx.ID)
	d.ID = idgen.WithPrefix("dec_")
	d.CustomerID = tx.CustomerID
	d.DecidedAt = time.Now().UTC()

	metrics.DecisionsTotal.WithLabelValues(string(d.Action)).Inc()
	s.record(ctx, d)
	return &Result{Decision: d, Velocity: velocity.Evaluate(nil)}
}

func (s *Service) lookupBaseline(ctx context.Context, customerID string) *fraud.CustomerHistory {
	if s.baselines == nil || customerID == "" {
		return nil
	}
	h, err := s.baselines.Get(ctx, customerID)
	if err != nil {
		logging.L(ctx).Warn("baseline lookup failed", "customer_id", customerID, "error", err)
		return nil
	}
	return h
}

// record persists the decision asynchronously; audit writes never block or
// fail the scoring path. Transient store errors are retried with backoff.
func (s *Service) record(ctx context.Context, d *decision.Decision) {
	if s.decisions == nil {
		return
	}
	logger := logging.L(ctx)
	go func() {
		err := retry.Do(context.Background(), 3, 100*time.Millisecond, func() error {
			return s.decisions.Record(context.Background(), d)
		})
		if err != nil {
			logger.Error("failed to record decision", "decision_id", d.ID, "error", err)
		}
	}()
}

func (s *Service) maybeFold(ctx context.Context, tx *fraud.Transaction, hist *fraud.CustomerHistory, fs *feature.FeatureSet, d *decision.Decision) {
	if !s.foldApproved || s.baselines == nil || tx.CustomerID == "" {
		return
	}
	if d.Action != fraud.ActionApprove {
		return
	}

	// Serialize folds per customer so concurrent approvals don't lose
	// each other's updates.
	unlock := s.folds.Lock(tx.CustomerID)
	defer unlock()

	// Fold against the freshest stored baseline; fall back to the
	// history this request was scored with.
	base := hist
	if stored, err := s.baselines.Get(ctx, tx.CustomerID); err == nil && stored != nil {
		base = stored
	}

	updated := history.Fold(base, tx.CustomerID, tx.Amount, fs.Hour)
	if err := s.baselines.Upsert(ctx, updated); err != nil {
		logging.L(ctx).Warn("baseline update failed", "customer_id", tx.CustomerID, "error", err)
	}
}

func (s *Service) observe(report *anomaly.Report, pred *ensemble.Prediction) {
	for dim, f := range map[string]anomaly.Flag{
		"amount":        report.Amount,
		"time":          report.Time,
		"location":      report.Location,
		"digit_pattern": report.DigitPattern,
	} {
		if f.Triggered {
			metrics.AnomaliesTotal.WithLabelValues(dim).Inc()
		}
	}
	if pred != nil {
		for _, f := range pred.Failures {
			metrics.ModelFailuresTotal.WithLabelValues(f.Model).Inc()
		}
	}
}

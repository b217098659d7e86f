package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/advisor"
	"github.com/ishanwen-byte/symrule-go/pkg/engine"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
	"github.com/ishanwen-byte/symrule-go/pkg/llm"
	"github.com/ishanwen-byte/symrule-go/pkg/protocol"
)

// Session wires the search engine and the advisor as two independently
// scheduled tasks over one transport. Only serialized messages cross
// the boundary between them.
type Session struct {
	cfg    *types.Config
	logger *logrus.Logger

	engine      *engine.Engine
	transport   *protocol.Transport
	consultant  *protocol.Consultant
	server      *advisor.Server
	testSamples int

	wg        sync.WaitGroup
	advisorErr error

	exitOnce     sync.Once
	shutdownOnce sync.Once
}

// Report is the outcome of one search run.
type Report struct {
	Threshold  float64
	Expression string
	Fitness    float64
	History    []types.BestRecord
}

// New creates a session over a fixed training set. testSamples is the
// size of the held-out split, announced to the advisor at the start of
// each threshold run. The advisor side is only constructed when the
// configuration enables it.
func New(cfg *types.Config, X [][]float64, y []int, testSamples int) (*Session, error) {
	ps, err := gp.NewPrimitiveSet(cfg.Data.Labels, cfg.GP.EphemeralMin, cfg.GP.EphemeralMax)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(cfg.GP, ps, X, y)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:         cfg,
		logger:      logrus.StandardLogger(),
		engine:      eng,
		testSamples: testSamples,
	}

	if cfg.Advisor.Enabled {
		if err := s.setupAdvisor(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SetLogger replaces the session's logger and propagates it to the
// engine and both protocol sides.
func (s *Session) SetLogger(logger *logrus.Logger) {
	s.logger = logger
	s.engine.SetLogger(logger)
	if s.consultant != nil {
		s.consultant.SetLogger(logger)
	}
	if s.server != nil {
		s.server.SetLogger(logger)
	}
}

// Engine exposes the underlying search engine.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

func (s *Session) setupAdvisor() error {
	models := make([]types.LLMModelConfig, len(s.cfg.LLM.Models))
	copy(models, s.cfg.LLM.Models)
	for i := range models {
		if models[i].APIBase == "" {
			models[i].APIBase = s.cfg.LLM.APIBase
		}
		if models[i].APIKey == "" {
			models[i].APIKey = s.cfg.LLM.APIKey
		}
		if models[i].SystemMessage == "" {
			models[i].SystemMessage = s.cfg.LLM.SystemMessage
		}
	}

	ensemble, err := llm.NewEnsemble(models)
	if err != nil {
		return errors.Wrap(err, errors.ConfigInvalid, "failed to build advisor ensemble")
	}

	s.transport = protocol.NewTransport(s.cfg.Advisor.QueueCapacity)
	s.consultant = protocol.NewConsultant(s.cfg.Advisor, s.transport.SearchEndpoint(), s.engine)
	s.server = advisor.NewServer(s.cfg.LLM, s.transport.AdvisorEndpoint(), ensemble)
	s.engine.SetConsultant(s.consultant, s.cfg.Advisor.InteractionInterval)
	return nil
}

// Run executes one full search at the given score threshold. When the
// advisor is enabled it runs concurrently and is told to exit exactly
// once, on every return path.
func (s *Session) Run(ctx context.Context, threshold float64) (*Report, error) {
	if s.consultant != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.server.Run(ctx); err != nil && ctx.Err() == nil {
				s.advisorErr = err
				s.logger.WithError(err).Warn("Advisor task failed")
			}
		}()

		if err := s.announce(ctx, threshold); err != nil {
			s.sendExit()
			return nil, err
		}
	}
	defer s.sendExit()

	result, err := s.engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"threshold":  threshold,
		"expression": result.Expression,
		"fitness":    result.Fitness,
	}).Info("Search finished")

	return &Report{
		Threshold:  threshold,
		Expression: result.Expression,
		Fitness:    result.Fitness,
		History:    result.History,
	}, nil
}

// announce introduces the run to the advisor: the vocabulary, then the
// threshold with both split sizes.
func (s *Session) announce(ctx context.Context, threshold float64) error {
	if err := s.consultant.SendInit(ctx); err != nil {
		return err
	}
	return s.consultant.SendThresholdStart(ctx, threshold, s.engine.SampleCount(), s.testSamples)
}

// sendExit tells the advisor to terminate. Safe to call from any
// return path; only the first call sends.
func (s *Session) sendExit() {
	s.exitOnce.Do(func() {
		if s.consultant == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.transport.SearchEndpoint().SendMessage(ctx, protocol.NewExitCommand()); err != nil {
			s.logger.WithError(err).Warn("Failed to deliver exit command")
		}
	})
}

// Shutdown releases the session's resources. Idempotent.
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.sendExit()
		if s.transport != nil {
			s.transport.Close()
		}
		s.wg.Wait()
	})
}

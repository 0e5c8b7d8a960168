// Package gateway is the mobile-money payout adapter. The Simulator stands
// in for the real provider in development and tests.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"insurance-settlement/internal/core/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrPayoutRejected is returned for instructions the provider refuses outright.
	ErrPayoutRejected = errors.New("payout rejected by provider")
	// ErrProviderUnavailable marks a transient provider failure; it is retried.
	ErrProviderUnavailable = errors.New("payout provider unavailable")
)

// ResultSink receives asynchronous payout results.
type ResultSink func(ctx context.Context, result domain.PayoutResult) error

// Config tunes the simulator.
type Config struct {
	ShortCode      string
	FailurePhone   string // payouts to this number are rejected
	SubmitAttempts int
	SubmitBackoff  time.Duration
	ResultDelay    time.Duration // zero disables result delivery
}

// Simulator implements ports.PaymentGateway.
type Simulator struct {
	cfg Config
	log zerolog.Logger

	// send performs one submission attempt; replaced in tests.
	send func(ctx context.Context, instruction domain.PayoutInstruction) (*domain.PayoutSubmission, error)

	mu   sync.RWMutex
	sink ResultSink
	wg   sync.WaitGroup
}

// NewSimulator creates a simulated gateway.
func NewSimulator(cfg Config, log zerolog.Logger) *Simulator {
	if cfg.SubmitAttempts < 1 {
		cfg.SubmitAttempts = 1
	}
	s := &Simulator{cfg: cfg, log: log}
	s.send = s.accept
	return s
}

// SetResultSink installs where simulated results are delivered.
func (s *Simulator) SetResultSink(sink ResultSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// SubmitPayout validates and submits the instruction, retrying transient
// failures with exponential backoff.
func (s *Simulator) SubmitPayout(ctx context.Context, instruction domain.PayoutInstruction) (*domain.PayoutSubmission, error) {
	if !instruction.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrPayoutRejected)
	}
	if instruction.DestinationPhone == "" {
		return nil, fmt.Errorf("%w: destination phone is required", ErrPayoutRejected)
	}

	b := backoff.NewExponentialBackOff()
	if s.cfg.SubmitBackoff > 0 {
		b.InitialInterval = s.cfg.SubmitBackoff
	}
	attempt := 0
	submission, err := backoff.RetryWithData(func() (*domain.PayoutSubmission, error) {
		attempt++
		sub, err := s.send(ctx, instruction)
		if err != nil && !errors.Is(err, ErrProviderUnavailable) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt).
				Str("transaction_id", instruction.InternalTransactionID.String()).
				Msg("payout submission failed, retrying")
		}
		return sub, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.SubmitAttempts-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("submit payout: %w", err)
	}

	s.log.Info().
		Str("transaction_id", instruction.InternalTransactionID.String()).
		Str("correlation_id", submission.OriginatorConversationID).
		Str("amount", instruction.Amount.StringFixed(2)).
		Msg("payout submitted")

	s.scheduleResult(instruction, submission)
	return submission, nil
}

// accept is the simulated provider: it refuses the configured failure number.
func (s *Simulator) accept(_ context.Context, instruction domain.PayoutInstruction) (*domain.PayoutSubmission, error) {
	if s.cfg.FailurePhone != "" && instruction.DestinationPhone == s.cfg.FailurePhone {
		return nil, fmt.Errorf("%w: destination %s", ErrPayoutRejected, instruction.DestinationPhone)
	}
	return &domain.PayoutSubmission{
		OriginatorConversationID: "AG_" + time.Now().UTC().Format("20060102") + "_" + randomHex(10),
		ConversationID:           "AG_" + randomHex(12),
	}, nil
}

func (s *Simulator) scheduleResult(instruction domain.PayoutInstruction, sub *domain.PayoutSubmission) {
	s.mu.RLock()
	sink := s.sink
	s.mu.RUnlock()
	if sink == nil || s.cfg.ResultDelay <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(s.cfg.ResultDelay)
		result := domain.PayoutResult{
			ResultCode:               domain.ResultCodeSuccess,
			ResultDescription:        "The service request is processed successfully.",
			OriginatorConversationID: sub.OriginatorConversationID,
			ConversationID:           sub.ConversationID,
			TransactionID:            randomHex(5),
			Parameters: map[string]string{
				"TransactionAmount":       instruction.Amount.StringFixed(2),
				"ReceiverPartyPublicName": instruction.DestinationPhone,
				"InitiatorShortCode":      s.cfg.ShortCode,
			},
		}
		if err := sink(context.Background(), result); err != nil {
			s.log.Error().Err(err).Str("correlation_id", sub.OriginatorConversationID).Msg("simulated payout result not applied")
		}
	}()
}

// Wait blocks until scheduled results are delivered.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

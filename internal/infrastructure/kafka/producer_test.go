package kafka

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"txaudit/internal/domain"
	"txaudit/internal/streaming"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	if _, err := NewProducer(ProducerConfig{}); err == nil {
		t.Error("expected an error without brokers")
	}
}

func TestTopicForChain(t *testing.T) {
	p := &Producer{prefix: "txaudit-alerts"}
	if got := p.topicForChain(137); got != "txaudit-alerts-137" {
		t.Errorf("unexpected topic %q", got)
	}
}

func TestAlertMessage_Mismatch(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	primary := common.HexToHash("0x" + strings.Repeat("11", 32))
	secondary := common.HexToHash("0x" + strings.Repeat("22", 32))
	match := false
	result := domain.AuditResult{
		TxHash:  hash,
		Verdict: domain.VerdictMismatch,
		Match:   &match,
		Primary: &domain.FetchOutcome{
			Provider: "primary",
			State:    domain.OutcomeOK,
			Bundle:   &domain.ReceiptBundle{ChainID: 1, BlockNumber: 100, Commitment: primary},
		},
		Secondary: &domain.FetchOutcome{
			Provider: "secondary",
			State:    domain.OutcomeOK,
			Bundle:   &domain.ReceiptBundle{ChainID: 1, BlockNumber: 100, Commitment: secondary},
		},
		Elapsed: 250 * time.Millisecond,
	}

	msg := alertMessage(result, 1)
	if msg.Type != streaming.MessageTypeMismatch {
		t.Errorf("expected mismatch type, got %s", msg.Type)
	}
	if msg.ChainID != 1 || msg.TxHash != hash || msg.BlockNumber != 100 {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if msg.CommitmentPrimary != primary.Hex() || msg.CommitmentSecondary != secondary.Hex() {
		t.Errorf("commitments not carried: %+v", msg)
	}
	if msg.ElapsedMS != 250 {
		t.Errorf("unexpected elapsed %d", msg.ElapsedMS)
	}
	if _, err := streaming.Encode(msg); err != nil {
		t.Errorf("alert must encode cleanly: %v", err)
	}
}

func TestAlertMessage_ProviderError(t *testing.T) {
	hash := "0x" + strings.Repeat("cd", 32)
	result := domain.AuditResult{
		TxHash:  hash,
		Verdict: domain.VerdictProviderError,
		Primary: &domain.FetchOutcome{
			Provider: "primary",
			State:    domain.OutcomeError,
			Err:      "primary: eth_getTransactionReceipt failed after 3 attempt(s): 503",
		},
	}

	msg := alertMessage(result, 10)
	if msg.Type != streaming.MessageTypeProviderError {
		t.Errorf("expected provider_error type, got %s", msg.Type)
	}
	if msg.Detail == "" {
		t.Error("expected the provider error in the detail")
	}
	if msg.CommitmentPrimary != "" || msg.BlockNumber != 0 {
		t.Errorf("no bundle fields should be set: %+v", msg)
	}
}

func TestAlertMessage_HistoryDrift(t *testing.T) {
	hash := "0x" + strings.Repeat("ef", 32)
	result := domain.AuditResult{
		TxHash:       hash,
		Verdict:      domain.VerdictOK,
		HistoryDrift: true,
		Primary: &domain.FetchOutcome{
			Provider: "primary",
			State:    domain.OutcomeOK,
			Bundle: &domain.ReceiptBundle{
				ChainID:     1,
				BlockNumber: 42,
				Commitment:  common.HexToHash("0x" + strings.Repeat("33", 32)),
			},
		},
	}

	msg := alertMessage(result, 1)
	if msg.Type != streaming.MessageTypeHistoryDrift {
		t.Errorf("expected history_drift type, got %s", msg.Type)
	}
	if msg.Verdict != "ok" {
		t.Errorf("drift alerts keep the audit verdict, got %q", msg.Verdict)
	}
}

package report

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"txaudit/internal/domain"
)

// ProviderInfo identifies one connected provider in the JSON payload.
type ProviderInfo struct {
	RPC     string `json:"rpc"`
	ChainID uint64 `json:"chainId"`
	Network string `json:"network"`
}

// BundleInfo is the per-provider receipt view in the JSON payload.
type BundleInfo struct {
	ChainID     uint64 `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber"`
	Status      uint8  `json:"status"`
	GasUsed     uint64 `json:"gasUsed"`
	Commitment  string `json:"commitment"`
}

// ResultPayload mirrors one audit result. The pointer fields marshal
// as explicit nulls when that side never produced an answer, so
// consumers can distinguish "absent" from "empty".
type ResultPayload struct {
	TxHash         string      `json:"txHash"`
	Verdict        string      `json:"verdict"`
	Primary        *BundleInfo `json:"primary"`
	Secondary      *BundleInfo `json:"secondary"`
	Match          *bool       `json:"match"`
	ErrorPrimary   *string     `json:"errorPrimary"`
	ErrorSecondary *string     `json:"errorSecondary"`
	Drift          bool        `json:"drift,omitempty"`
	TimingSec      float64     `json:"timingSec"`
}

// BatchPayload is the machine-readable form of one batch run.
type BatchPayload struct {
	Primary    ProviderInfo    `json:"primary"`
	Secondary  *ProviderInfo   `json:"secondary"`
	ElapsedSec float64         `json:"elapsedSec"`
	Results    []ResultPayload `json:"results"`
}

// NewBatchPayload converts a batch summary into the JSON payload.
func NewBatchPayload(s *domain.BatchSummary) BatchPayload {
	payload := BatchPayload{
		Primary:    providerInfo(s.Primary),
		ElapsedSec: roundSeconds(s.Elapsed),
		Results:    make([]ResultPayload, 0, len(s.Results)),
	}
	if s.Secondary != nil {
		info := providerInfo(*s.Secondary)
		payload.Secondary = &info
	}
	for i := range s.Results {
		payload.Results = append(payload.Results, resultPayload(&s.Results[i]))
	}
	return payload
}

// WriteJSON writes the payload with two-space indentation and a
// trailing newline.
func WriteJSON(w io.Writer, payload BatchPayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func providerInfo(p domain.ProviderIdentity) ProviderInfo {
	return ProviderInfo{RPC: p.RPC, ChainID: p.ChainID, Network: p.Network}
}

func resultPayload(res *domain.AuditResult) ResultPayload {
	out := ResultPayload{
		TxHash:    res.TxHash,
		Verdict:   string(res.Verdict),
		Match:     res.Match,
		Drift:     res.HistoryDrift,
		TimingSec: roundSeconds(res.Elapsed),
	}
	if res.Primary != nil {
		out.Primary = bundleInfo(res.Primary.Bundle)
		out.ErrorPrimary = outcomeError(res.Primary)
	}
	if res.Secondary != nil {
		out.Secondary = bundleInfo(res.Secondary.Bundle)
		out.ErrorSecondary = outcomeError(res.Secondary)
	}
	return out
}

func bundleInfo(b *domain.ReceiptBundle) *BundleInfo {
	if b == nil {
		return nil
	}
	return &BundleInfo{
		ChainID:     b.ChainID,
		BlockNumber: b.BlockNumber,
		Status:      b.Status,
		GasUsed:     b.GasUsed,
		Commitment:  b.Commitment.Hex(),
	}
}

func outcomeError(o *domain.FetchOutcome) *string {
	switch o.State {
	case domain.OutcomeError:
		msg := o.Err
		return &msg
	case domain.OutcomeNotFound:
		msg := "receipt not found"
		return &msg
	}
	return nil
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

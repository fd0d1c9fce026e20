package dispatch

import (
	"context"
	"fmt"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/pkg/logger"
)

type IManager interface {
	DispatchIfApproved(ctx context.Context, caseId string, decision entity.Decision, status entity.ApprovalStatus, notes string) (map[string]interface{}, error)
}

type Manager struct {
	channels []Channel
	dryRun   bool
	logger   logger.ILogger
}

func NewManager(dryRun bool, log logger.ILogger, channels ...Channel) *Manager {
	return &Manager{channels: channels, dryRun: dryRun, logger: log}
}

// DispatchIfApproved tries every channel on its own. One failing channel
// never stops the others; failures are reported under "errors".
func (m *Manager) DispatchIfApproved(ctx context.Context, caseId string, decision entity.Decision, status entity.ApprovalStatus, notes string) (map[string]interface{}, error) {
	if status != entity.ApprovalApproved {
		m.logger.Info("DISPATCH", "Dispatch skipped, case not approved", map[string]interface{}{
			"case_id": caseId,
			"status":  status,
		})
		return map[string]interface{}{"dispatched": false, "reason": "approval_required"}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg := Message{
		CaseId:     caseId,
		Severity:   decision.Severity,
		Confidence: decision.Confidence,
		Rationale:  decision.Rationale,
		Notes:      notes,
		DryRun:     m.dryRun,
	}

	result := map[string]interface{}{"dry_run": m.dryRun}
	errs := map[string]interface{}{}
	succeeded := 0
	for _, ch := range m.channels {
		out, err := m.send(ctx, ch, msg)
		if err != nil {
			m.logger.Error("DISPATCH", "Channel failed", map[string]interface{}{
				"case_id": caseId,
				"channel": ch.Name(),
				"error":   err.Error(),
			})
			errs[ch.Name()] = err.Error()
			result[ch.Name()] = nil
			continue
		}
		succeeded++
		result[ch.Name()] = out
	}

	result["dispatched"] = succeeded > 0
	result["partial"] = succeeded > 0 && len(errs) > 0
	result["errors"] = errs
	if succeeded == 0 && len(m.channels) > 0 {
		result["reason"] = "all_channels_failed"
	}
	return result, nil
}

func (m *Manager) send(ctx context.Context, ch Channel, msg Message) (out map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("channel %s panicked: %v", ch.Name(), r)
		}
	}()
	return ch.Send(ctx, msg)
}

package service

import (
	"context"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
)

const (
	caseAuditLimit    = 200
	caseOutputLimit   = 100
	caseApprovalLimit = 100
)

type ICaseService interface {
	GetCaseDetail(ctx context.Context, caseId, runId string) (*dto.CaseDetailResponse, error)
}

type caseService struct {
	uowFactory unitofwork.RepositoryFactory
	audit      IAuditService
}

func NewCaseService(uowFactory unitofwork.RepositoryFactory, audit IAuditService) ICaseService {
	return &caseService{uowFactory: uowFactory, audit: audit}
}

// GetCaseDetail resolves the latest row of the case, optionally inside one
// run, and scopes everything else to that row's run.
func (s *caseService) GetCaseDetail(ctx context.Context, caseId, runId string) (*dto.CaseDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	caseRow, err := uow.CaseRepository().FindOne(ctx, append(specification.ForCase(caseId, runId), specification.NewestFirst())...)
	if err != nil {
		return nil, err
	}
	if caseRow == nil {
		if runId != "" {
			return nil, newError(ErrNotFound, "Case '%s' not found in run '%s'", caseId, runId)
		}
		return nil, newError(ErrNotFound, "Case '%s' not found", caseId)
	}

	scope := specification.ForCase(caseId, caseRow.RunId)

	decision, err := uow.DecisionRepository().FindOne(ctx, append(scope, specification.NewestFirst())...)
	if err != nil {
		return nil, err
	}
	outputs, err := uow.AgentOutputRepository().FindAll(ctx, append(scope, specification.OldestFirst(), specification.Limit(caseOutputLimit))...)
	if err != nil {
		return nil, err
	}
	approvals, err := uow.ApprovalRepository().FindAll(ctx, append(scope, specification.NewestFirst(), specification.Limit(caseApprovalLimit))...)
	if err != nil {
		return nil, err
	}
	trail, err := s.audit.Trail(ctx, caseId, caseRow.RunId, caseAuditLimit)
	if err != nil {
		return nil, err
	}

	res := &dto.CaseDetailResponse{
		Case:              toCaseRecord(caseRow),
		RagContextSources: map[string]interface{}{},
		AgentOutputs:      make([]dto.AgentOutputRecord, 0, len(outputs)),
		Approvals:         make([]dto.ApprovalRecord, 0, len(approvals)),
		AuditTrail:        make([]dto.AuditRecord, 0, len(trail)),
	}
	if decision != nil {
		record := toDecisionRecord(decision)
		res.Decision = &record
		res.Suggestion = decision.Suggestion
	}
	for _, o := range outputs {
		res.AgentOutputs = append(res.AgentOutputs, dto.AgentOutputRecord{
			RunId:      o.RunId,
			CaseId:     o.CaseId,
			AgentName:  o.AgentName,
			Output:     orEmpty(o.Output),
			Score:      o.Score,
			Confidence: o.Confidence,
			CreatedAt:  o.CreatedAt,
		})
	}
	for _, a := range approvals {
		res.Approvals = append(res.Approvals, dto.ApprovalRecord{
			RunId:        a.RunId,
			CaseId:       a.CaseId,
			Status:       string(a.Status),
			ReviewerName: a.Reviewer,
			Notes:        a.ReviewNotes,
			Dispatch:     orEmpty(a.DispatchInfo),
			Timestamp:    a.CreatedAt,
		})
	}
	ragFound := false
	for _, e := range trail {
		if !ragFound && e.EventType == entity.AuditRagContextBuilt {
			res.RagContextSources = orEmpty(e.Payload)
			ragFound = true
		}
		res.AuditTrail = append(res.AuditTrail, dto.AuditRecord{
			RunId:     e.RunId,
			CaseId:    e.CaseId,
			EventType: e.EventType,
			Actor:     e.Actor,
			Payload:   orEmpty(e.Payload),
			Timestamp: e.CreatedAt,
		})
	}

	return res, nil
}

func toCaseRecord(c *entity.CaseRecord) dto.CaseRecord {
	return dto.CaseRecord{
		CaseId:        c.CaseId,
		RunId:         c.RunId,
		CaseDate:      c.CaseDate,
		Country:       c.Country,
		City:          c.City,
		Lat:           c.Lat,
		Lon:           c.Lon,
		PathogenLabel: c.PathogenLabel,
		Normalized:    orEmpty(c.Normalized),
		GroundTruth:   orEmpty(c.GroundTruth),
		CreatedAt:     c.CreatedAt,
	}
}

func toDecisionRecord(d *entity.Decision) dto.DecisionRecord {
	return dto.DecisionRecord{
		RunId:             d.RunId,
		CaseId:            d.CaseId,
		FusedScore:        d.FusedScore,
		Severity:          d.Severity,
		Confidence:        d.Confidence,
		EligibleForReview: d.EligibleForApproval,
		Rationale:         d.Rationale,
		Contributions:     orEmpty(d.Contributions),
		Threshold:         d.RecommendedThreshold,
		Suggestion:        d.Suggestion,
		CreatedAt:         d.CreatedAt,
	}
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

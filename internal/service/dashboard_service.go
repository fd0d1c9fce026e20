package service

import (
	"context"
	"math"
	"strings"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"
)

const (
	dashboardCaseScan     = 100
	dashboardDecisionScan = 1000
	dashboardSummaries    = 20
)

type IDashboardService interface {
	GetDashboard(ctx context.Context) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDashboardService(uowFactory unitofwork.RepositoryFactory) IDashboardService {
	return &dashboardService{uowFactory: uowFactory}
}

type caseRunKey struct {
	caseId string
	runId  string
}

// latestByCaseRun keeps the first row seen per (case, run); rows arrive
// newest first so that is the latest one.
func latestByCaseRun[E any](rows []*E, key func(*E) (string, string)) map[caseRunKey]*E {
	out := make(map[caseRunKey]*E, len(rows))
	for _, row := range rows {
		caseId, runId := key(row)
		caseId = strings.TrimSpace(caseId)
		if caseId == "" {
			continue
		}
		k := caseRunKey{caseId: caseId, runId: strings.TrimSpace(runId)}
		if _, seen := out[k]; !seen {
			out[k] = row
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (s *dashboardService) GetDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	cases, err := uow.CaseRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(dashboardCaseScan))
	if err != nil {
		return nil, err
	}
	decisions, err := uow.DecisionRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(dashboardDecisionScan))
	if err != nil {
		return nil, err
	}
	approvals, err := uow.ApprovalRepository().FindAll(ctx, specification.NewestFirst(), specification.Limit(dashboardDecisionScan))
	if err != nil {
		return nil, err
	}

	latestDecisions := latestByCaseRun(decisions, func(d *entity.Decision) (string, string) { return d.CaseId, d.RunId })
	latestApprovals := latestByCaseRun(approvals, func(a *entity.ApprovalRecord) (string, string) { return a.CaseId, a.RunId })

	if len(cases) > dashboardSummaries {
		cases = cases[:dashboardSummaries]
	}

	res := &dto.DashboardResponse{
		RecentCases:           make([]dto.CaseSummary, 0, len(cases)),
		CurrentRunMetrics:     map[string]interface{}{},
		PendingApprovalsQueue: make([]dto.PendingApproval, 0),
		CaseDetailsSummary:    make([]dto.CaseDetailSummary, 0, len(cases)),
	}

	for _, c := range cases {
		key := caseRunKey{caseId: c.CaseId, runId: c.RunId}
		summary := dto.CaseSummary{
			CaseId:  c.CaseId,
			RunId:   c.RunId,
			Country: c.Country,
			City:    c.City,
			Date:    c.CaseDate,
			Status:  string(entity.ApprovalNotRequired),
		}
		if d, ok := latestDecisions[key]; ok {
			summary.Severity = round3(d.Severity)
			summary.Confidence = round3(d.Confidence)
			summary.EligibleForReview = d.EligibleForApproval
			summary.Suggestion = d.Suggestion
			if d.EligibleForApproval {
				summary.Status = string(entity.ApprovalPending)
			}
		}
		if a, ok := latestApprovals[key]; ok && a.Status != "" {
			summary.Status = string(a.Status)
		}
		res.RecentCases = append(res.RecentCases, summary)

		if summary.Status == string(entity.ApprovalPending) && summary.EligibleForReview {
			res.PendingApprovalsQueue = append(res.PendingApprovalsQueue, dto.PendingApproval{
				CaseId:     summary.CaseId,
				RunId:      summary.RunId,
				Severity:   summary.Severity,
				Confidence: summary.Confidence,
				Status:     summary.Status,
				Suggestion: summary.Suggestion,
			})
		}
		res.CaseDetailsSummary = append(res.CaseDetailsSummary, dto.CaseDetailSummary{
			CaseId:            summary.CaseId,
			RunId:             summary.RunId,
			Severity:          summary.Severity,
			Confidence:        summary.Confidence,
			EligibleForReview: summary.EligibleForReview,
			Status:            summary.Status,
			Suggestion:        summary.Suggestion,
		})
	}

	metrics, err := uow.MetricRepository().FindOne(ctx, specification.NewestFirst())
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		current := metrics.Map()
		current["run_id"] = metrics.RunId
		current["computed_at"] = metrics.CreatedAt
		res.CurrentRunMetrics = current
	}

	return res, nil
}

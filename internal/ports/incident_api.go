package ports

import (
	"context"

	"github.com/bnema/incident-cli/internal/domain"
)

type StatusFetcher interface {
	FetchStatus(ctx context.Context, id domain.IncidentID) (domain.StatusRecord, error)
}

type IncidentSubmitter interface {
	SubmitIncident(ctx context.Context, indicator domain.Indicator) (domain.Submission, error)
}

type BriefDownloader interface {
	DownloadBrief(ctx context.Context, id domain.IncidentID) ([]byte, error)
}

type IncidentAPI interface {
	StatusFetcher
	IncidentSubmitter
	BriefDownloader
}

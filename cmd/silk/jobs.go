package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/silk/pkg/jobs"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/presenter"
)

const jobShutdownTimeout = 5 * time.Second

// waitForJobs waits for every job started on runner, reports each success
// and returns the failures as one aggregated error
func waitForJobs(ctx context.Context, runner *jobs.Runner) error {
	var result *multierror.Error

	results, err := runner.Wait(ctx)
	for _, r := range results {
		if r.Err != nil {
			result = multierror.Append(result, errors.Wrap(r.Err, failureContext(r.Job)))
			continue
		}
		presenter.Success(successMessage(r))
	}

	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "interrupted before all jobs finished"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), jobShutdownTimeout)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.G(ctx).WithError(err).Warn("background jobs did not stop in time")
	}

	return result.ErrorOrNil()
}

func failureContext(job *jobs.Job) string {
	if job.Kind == jobs.KindUpdate {
		return "Update failed: " + job.Description
	}
	return fmt.Sprintf("Install failed (%s)", job.Description)
}

func successMessage(r jobs.Result) string {
	n := len(r.Plugin.Skills())
	if r.Job.Kind == jobs.KindUpdate {
		return fmt.Sprintf("Updated: %s (%d skills)", r.Plugin.Name(), n)
	}
	return fmt.Sprintf("Installed: %s (%d skills)", r.Plugin.Name(), n)
}

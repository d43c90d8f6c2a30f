package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/notify"
	"github.com/xraph/payroll/run"
)

const (
	reportSubject = "Salary Report"
	reportBody    = "Hello %s,\n\nPlease find attached the salary report for %s.\n\nBest regards,\nHR Department"
)

func (o *Orchestrator) createAggregateReport(ctx context.Context, r *run.Run) (any, Status, error) {
	emps, err := o.employees(ctx, r.Actor)
	if err != nil {
		return nil, StatusFailed, err
	}
	if len(emps) == 0 {
		return AggregateResult{Errors: []string{msgNoEmployees}}, StatusNotFound, nil
	}

	o.advance(r, run.StateBuilding)
	doc, err := o.builder.BuildAggregate(ctx, emps, o.period())
	if err != nil {
		if document.IsValidation(err) {
			o.logger.Warn("report rejected",
				slog.String("run_id", r.ID.String()),
				slog.String("error", err.Error()),
			)
			o.extensions.EmitDocumentRejected(ctx, r, artifact.ReportPrefix(r.Actor), err)
			o.advance(r, run.StateCompleted)
			return AggregateResult{Errors: []string{errorText(err)}}, StatusOK, nil
		}
		return nil, StatusFailed, payroll.NewResourceError("build report", err)
	}

	o.advance(r, run.StateArchiving)
	art, err := o.archive.Write(ctx, artifact.ReportPrefix(r.Actor), doc.Payload, doc.MediaType)
	if err != nil {
		return nil, StatusFailed, err
	}
	o.extensions.EmitArtifactArchived(ctx, r, art)

	o.advance(r, run.StateCompleted)
	return AggregateResult{Sent: 1, Errors: []string{}, Artifact: art.ID.String()}, StatusOK, nil
}

func (o *Orchestrator) sendAggregateReport(ctx context.Context, r *run.Run) (any, Status, error) {
	art, err := o.archive.Latest(ctx, artifact.ReportPrefix(r.Actor))
	if errors.Is(err, payroll.ErrArtifactNotFound) {
		return AggregateResult{Errors: []string{msgNoArchivedReport}}, StatusNotFound, nil
	}
	if err != nil {
		return nil, StatusFailed, err
	}

	recipients, err := o.reportRecipients(ctx, r.Actor)
	if err != nil {
		return nil, StatusFailed, err
	}
	if len(recipients) == 0 {
		return AggregateResult{Errors: []string{msgNoReportTargets}}, StatusNotFound, nil
	}

	o.advance(r, run.StateDispatching)
	period := o.period().Format("January 2006")
	resolve := func(context.Context, dispatch.Recipient) (*artifact.Artifact, error) {
		return art, nil
	}
	send := func(ctx context.Context, rc dispatch.Recipient, a *artifact.Artifact) error {
		return o.sender.Send(ctx, &notify.Message{
			To:      rc.Address,
			Subject: reportSubject,
			Body:    fmt.Sprintf(reportBody, rc.Name, period),
			Attachment: &notify.Attachment{
				Name:      a.FileName(),
				MediaType: a.MediaType,
				Data:      a.Payload,
			},
		})
	}

	result, err := o.engine.DispatchMany(ctx, recipients, resolve, send)
	if err != nil {
		return nil, StatusFailed, err
	}
	o.extensions.EmitOutcomes(ctx, r, result.Outcomes)

	res := AggregateResult{Sent: result.SentCount, Total: result.TotalCount, Errors: []string{}}
	for _, f := range result.Failures() {
		res.Errors = append(res.Errors, f.Address+": "+f.Error)
	}
	o.advance(r, run.StateCompleted)
	return res, StatusOK, nil
}

// reportRecipients returns the manager and every user holding one of the
// configured report roles, deduplicated by address.
func (o *Orchestrator) reportRecipients(ctx context.Context, managerID int64) ([]dispatch.Recipient, error) {
	var users []*directory.User

	mgr, err := o.dir.User(ctx, managerID)
	switch {
	case err == nil:
		users = append(users, mgr)
	case errors.Is(err, payroll.ErrUserNotFound):
		o.logger.Warn("report owner has no user record",
			slog.Int64("manager", managerID),
		)
	default:
		return nil, payroll.NewResourceError("directory", err)
	}

	for _, role := range o.config.ReportRoles {
		byRole, err := o.dir.UsersByRole(ctx, role)
		if err != nil {
			return nil, payroll.NewResourceError("directory", err)
		}
		users = append(users, byRole...)
	}

	seen := make(map[string]bool, len(users))
	out := make([]dispatch.Recipient, 0, len(users))
	for _, u := range users {
		addr := strings.ToLower(strings.TrimSpace(u.Email))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, dispatch.Recipient{
			ID:      strconv.FormatInt(u.ID, 10),
			Name:    u.Username,
			Address: u.Email,
		})
	}
	return out, nil
}

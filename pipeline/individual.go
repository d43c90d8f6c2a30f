package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/notify"
	"github.com/xraph/payroll/run"
)

const (
	slipSubject = "Your Salary Slip"
	slipBody    = "Dear %s,\n\nPlease find attached your salary slip for this month.\n\nBest regards,\nHR Department"
)

// slipJob carries one employee through build and archive.
type slipJob struct {
	emp *directory.Employee
	doc *document.Document
	art *artifact.Artifact
	err error
}

func (o *Orchestrator) createIndividualDocuments(ctx context.Context, r *run.Run) (any, Status, error) {
	emps, err := o.employees(ctx, r.Actor)
	if err != nil {
		return nil, StatusFailed, err
	}
	if len(emps) == 0 {
		return IndividualResult{
			Generated: []Generated{},
			Errors:    []RecipientError{{Error: msgNoEmployees}},
		}, StatusNotFound, nil
	}

	jobs := o.buildAndArchive(ctx, r, emps)

	res := IndividualResult{Generated: []Generated{}, Errors: []RecipientError{}}
	for _, j := range jobs {
		if j.err != nil {
			res.Errors = append(res.Errors, RecipientError{Recipient: j.emp.Code, Error: errorText(j.err)})
			continue
		}
		res.Generated = append(res.Generated, Generated{Recipient: j.emp.Code, Artifact: j.art.ID.String()})
	}
	o.advance(r, run.StateCompleted)
	return res, StatusOK, nil
}

func (o *Orchestrator) sendIndividualDocuments(ctx context.Context, r *run.Run) (any, Status, error) {
	emps, err := o.employees(ctx, r.Actor)
	if err != nil {
		return nil, StatusFailed, err
	}
	if len(emps) == 0 {
		return SendResult{Errors: []RecipientError{{Error: msgNoEmployees}}}, StatusNotFound, nil
	}

	jobs := o.buildAndArchive(ctx, r, emps)

	failed := make(map[string]error, len(jobs))
	byCode := make(map[string]*directory.Employee, len(jobs))
	recipients := make([]dispatch.Recipient, 0, len(jobs))
	for _, j := range jobs {
		if j.err != nil {
			failed[j.emp.Code] = j.err
		}
		byCode[j.emp.Code] = j.emp
		recipients = append(recipients, dispatch.Recipient{
			ID:      j.emp.Code,
			Name:    j.emp.FullName(),
			Address: j.emp.Email,
		})
	}

	o.advance(r, run.StateDispatching)

	resolve := func(ctx context.Context, rc dispatch.Recipient) (*artifact.Artifact, error) {
		if err := failed[rc.ID]; err != nil {
			return nil, err
		}
		return o.archive.Latest(ctx, artifact.SlipPrefix(rc.ID))
	}
	send := func(ctx context.Context, rc dispatch.Recipient, art *artifact.Artifact) error {
		return o.sender.Send(ctx, slipMessage(byCode[rc.ID], art))
	}

	result, err := o.engine.DispatchMany(ctx, recipients, resolve, send)
	if err != nil {
		return nil, StatusFailed, err
	}
	o.extensions.EmitOutcomes(ctx, r, result.Outcomes)

	res := SendResult{Sent: result.SentCount, Total: result.TotalCount, Errors: []RecipientError{}}
	for _, f := range result.Failures() {
		res.Errors = append(res.Errors, RecipientError{Recipient: f.RecipientID, Error: outcomeText(f)})
	}
	o.advance(r, run.StateCompleted)
	return res, StatusOK, nil
}

// buildAndArchive builds and archives a slip per employee on a bounded
// pool. Failures are recorded per employee and never stop the batch. The
// returned jobs keep the input order.
func (o *Orchestrator) buildAndArchive(ctx context.Context, r *run.Run, emps []*directory.Employee) []slipJob {
	period := o.period()
	jobs := make([]slipJob, len(emps))

	o.advance(r, run.StateBuilding)
	o.forEach(len(emps), func(i int) {
		jobs[i].emp = emps[i]
		jobs[i].doc, jobs[i].err = o.buildSlip(ctx, r, emps[i], period)
	})

	o.advance(r, run.StateArchiving)
	o.forEach(len(jobs), func(i int) {
		j := &jobs[i]
		if j.err != nil {
			return
		}
		art, err := o.archive.Write(ctx, artifact.SlipPrefix(j.emp.Code), j.doc.Payload, j.doc.MediaType)
		if err != nil {
			o.logger.Error("slip not archived",
				slog.String("run_id", r.ID.String()),
				slog.String("employee", j.emp.Code),
				slog.String("error", err.Error()),
			)
			j.err = err
			return
		}
		j.art = art
		o.extensions.EmitArtifactArchived(ctx, r, art)
	})
	return jobs
}

// buildSlip runs the builder for one employee and classifies its error.
func (o *Orchestrator) buildSlip(ctx context.Context, r *run.Run, emp *directory.Employee, period time.Time) (*document.Document, error) {
	doc, err := o.builder.BuildSlip(ctx, emp, period)
	switch {
	case err == nil:
		return doc, nil
	case document.IsValidation(err):
		o.logger.Warn("slip rejected",
			slog.String("run_id", r.ID.String()),
			slog.String("employee", emp.Code),
			slog.String("error", err.Error()),
		)
		o.extensions.EmitDocumentRejected(ctx, r, emp.Code, err)
		return nil, err
	default:
		o.logger.Error("slip build failed",
			slog.String("run_id", r.ID.String()),
			slog.String("employee", emp.Code),
			slog.String("error", err.Error()),
		)
		return nil, payroll.NewResourceError("build slip", err)
	}
}

// BuildSlip renders one employee's slip for the current period without
// archiving it. It is read-only and not gated by an idempotency key.
func (o *Orchestrator) BuildSlip(ctx context.Context, employeeID int64) (*document.Document, *directory.Employee, error) {
	emp, err := o.dir.Employee(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := o.builder.BuildSlip(ctx, emp, o.period())
	if err != nil {
		if document.IsValidation(err) {
			return nil, emp, err
		}
		return nil, emp, payroll.NewResourceError("build slip", err)
	}
	return doc, emp, nil
}

func slipMessage(emp *directory.Employee, art *artifact.Artifact) *notify.Message {
	return &notify.Message{
		To:      emp.Email,
		Subject: slipSubject,
		Body:    fmt.Sprintf(slipBody, emp.FirstName),
		Attachment: &notify.Attachment{
			Name:      art.FileName(),
			MediaType: art.MediaType,
			Data:      art.Payload,
		},
	}
}

// outcomeText is errorText for a failed dispatch outcome.
func outcomeText(o dispatch.Outcome) string {
	if o.Err == nil {
		return o.Error
	}
	return errorText(o.Err)
}

// errorText is the per-recipient message. Validation errors surface their
// reason; the subject is already the recipient field.
func errorText(err error) string {
	var ve *document.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}

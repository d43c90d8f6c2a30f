// Package payroll provides an idempotent generation-and-dispatch pipeline
// for payroll documents. It builds per-employee salary slips and aggregated
// salary reports, archives them as immutable timestamped artifacts, and
// delivers them by email to employees and managers.
//
// payroll is designed as a library. The pipeline package composes the
// subsystems; callers supply a store backend, a document builder, a
// directory of employees and an outbound sender.
//
// # Quick Start
//
//	dir := directory.NewStatic(file)
//	o, err := pipeline.New(dir, document.NewTabular(dir, "Acme"), notify.NewSMTP(smtpCfg),
//	    pipeline.WithStore(memory.New()),
//	    pipeline.WithConfig(payroll.DefaultConfig()),
//	)
//	out, err := o.SendIndividualDocuments(ctx, managerID, idempotencyKey)
//
// # Architecture
//
// Each subsystem (idempotency, cache, artifact, directory) defines its own
// store interface. A single backend (memory, redis, postgres, sqlite,
// mongo) implements the ones it supports.
//
// Every boundary operation runs through the same template: admit the
// idempotency key, consult the result cache, resolve employees, build and
// archive documents, dispatch, and cache the result. Failures of a single
// employee or recipient never abort the rest of the batch.
package payroll

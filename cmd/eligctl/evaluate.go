package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"gonogo/internal/audit"
	auditmemory "gonogo/internal/audit/store/memory"
	auditpostgres "gonogo/internal/audit/store/postgres"
	"gonogo/internal/decision"
	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers/sam"
	"gonogo/internal/evidence/providers/simulated"
	"gonogo/internal/sizestd"
	sizememory "gonogo/internal/sizestd/store/memory"
	sizepostgres "gonogo/internal/sizestd/store/postgres"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

type evaluateFlags struct {
	uei, cage, legalName string
	naics                string
	basisKind            string
	basisValue           string
	mock                 bool
}

func newEvaluateCmd(e *env) *cobra.Command {
	var f evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one eligibility evaluation and print the result",
		Long:  "Evaluates one entity with the same evaluator the service uses. With ELIG_DB set\n" +
			"the size table and audit trail are the service's own; otherwise both are in memory.",
		Example: "  eligctl evaluate --uei ABC123DEF456 --naics 541511 --basis-kind receipts --basis-value 12000000 --mock",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var (
				sizeStore  sizestd.Store = sizememory.NewInMemory()
				auditStore audit.Store   = auditmemory.NewInMemoryStore()
			)
			if e.cfg.Postgres.URL != "" {
				db, err := e.database(ctx)
				if err != nil {
					return err
				}
				sizeStore = sizepostgres.NewPostgres(db)
				auditStore = auditpostgres.New(db)
			}

			sizes := sizestd.New(sizeStore, sizestd.WithLogger(e.log))
			if err := sizes.Load(ctx); err != nil {
				return err
			}
			recorder, err := audit.New(auditStore, audit.WithLogger(e.log))
			if err != nil {
				return err
			}
			policy, err := decision.ParseUnknownSizePolicy(e.cfg.Decision.UnknownSizePolicy)
			if err != nil {
				return err
			}
			exclusions, registration := e.providers(f.mock || e.cfg.Server.MockMode)
			evaluator, err := decision.New(exclusions, registration, sizes, recorder,
				decision.WithLogger(e.log),
				decision.WithUnknownSizePolicy(policy),
				decision.WithEvidenceTimeout(e.cfg.Decision.EvidenceTimeout),
			)
			if err != nil {
				return err
			}

			result, err := evaluator.Evaluate(ctx, req)
			if err != nil {
				return err
			}
			return e.printJSON(decision.NewView(result))
		},
	}

	cmd.Flags().StringVar(&f.uei, "uei", "", "unique entity identifier (12 characters)")
	cmd.Flags().StringVar(&f.cage, "cage", "", "CAGE code (5 characters)")
	cmd.Flags().StringVar(&f.legalName, "legal-name", "", "registered legal business name")
	cmd.Flags().StringVar(&f.naics, "naics", "", "six digit NAICS code")
	cmd.Flags().StringVar(&f.basisKind, "basis-kind", "", "declared size basis: receipts or employees")
	cmd.Flags().StringVar(&f.basisValue, "basis-value", "", "declared size value")
	cmd.Flags().BoolVar(&f.mock, "mock", false, "use simulated providers instead of SAM")
	_ = cmd.MarkFlagRequired("naics")
	return cmd
}

func (f evaluateFlags) request() (decision.EvaluateRequest, error) {
	id, err := domain.ParseIdentifier(f.uei, f.cage, f.legalName)
	if err != nil {
		return decision.EvaluateRequest{}, err
	}
	code, err := domain.ParseNAICSCode(f.naics)
	if err != nil {
		return decision.EvaluateRequest{}, err
	}
	req := decision.EvaluateRequest{Identifier: id, NAICS: code, Requester: "cli"}

	if f.basisKind == "" && f.basisValue == "" {
		return req, nil
	}
	value, err := decimal.NewFromString(f.basisValue)
	if err != nil {
		return decision.EvaluateRequest{}, dErrors.New(dErrors.CodeInvalidInput, "--basis-value must be a number")
	}
	basis, err := sizestd.NewSizeBasis(f.basisKind, value)
	if err != nil {
		return decision.EvaluateRequest{}, err
	}
	req.Basis = basis
	return req, nil
}

func (e *env) providers(mock bool) (evidence.ExclusionProvider, evidence.RegistrationProvider) {
	if mock {
		return simulated.NewExclusionProvider(), simulated.NewRegistrationProvider()
	}
	cfg := sam.Config{
		EntityURL:     e.cfg.SAM.EntityURL,
		ExclusionsURL: e.cfg.SAM.ExclusionsURL,
		APIKey:        e.cfg.SAM.APIKey,
		Timeout:       e.cfg.SAM.Timeout,
		MaxRetries:    e.cfg.SAM.MaxRetries,
	}
	return sam.NewExclusionsProvider(cfg, e.log), sam.NewEntityProvider(cfg, e.log)
}

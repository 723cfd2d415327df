package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nrft/nrft/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo pharmacy, survey template, patient and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runSeed(file)
		},
	}
	cmd.Flags().String("file", "seeds/nrft_initial.yaml", "Survey template definition (YAML)")
	return cmd
}

func runSeed(file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return fmt.Errorf("seed is not allowed when ENV=production")
	}
	logger := newLogger(cfg.Env)

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	tpl, err := seed.LoadTemplate(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, err := buildServices(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}

	res, err := seed.New(seed.Deps{
		Identity:  svc.identity,
		Surveys:   svc.survey,
		Templates: svc.templates,
		Sessions:  svc.sessions,
		Patients:  svc.patients,
	}, cfg.SessionTTL, logger).Run(ctx, tpl)
	if err != nil {
		return err
	}

	color.Green("Demo data ready.")
	fmt.Printf("  Pharmacy ID:      %s\n", res.PharmacyID)
	if res.LoginEmail != "" {
		fmt.Printf("  Login:            %s / %s\n", res.LoginEmail, res.LoginPassword)
	}
	fmt.Printf("  Template:         %s (v%d)\n", res.TemplateID, res.TemplateVersion)
	fmt.Printf("  Patient ID:       %s\n", res.PatientID)
	fmt.Printf("  Session token:    %s [%s]\n", res.SessionToken, res.SessionStatus)
	if !res.SessionCreated {
		color.Yellow("  The demo session already existed and was left unchanged.")
	}
	fmt.Printf("  Survey URL:       %s/survey/%s\n", strings.TrimRight(cfg.SurveyAppURL, "/"), res.SessionToken)
	return nil
}

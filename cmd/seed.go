package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/db"
	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/repository"
	"github.com/jmehdipour/visa-crm/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		// 3) insert, skipping rows that already exist
		n, err := seedCustomers(cmd.Context(), repository.NewCustomersRepository(sqlDB), time.Now(), loc)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), ">> Seed completed, %d new customers\n", n)
		return nil
	},
}

// demoCustomers returns deterministic demo rows relative to today in loc:
// two expiring today (one without a phone) and two later.
func demoCustomers(now time.Time, loc *time.Location) []model.Customer {
	today, _ := util.ParseDate(util.Today(now, loc))
	return []model.Customer{
		{
			CustomerName:   "Ali Hassan",
			VisaType:       "Employment",
			VisaExpiryDate: today,
			CountryCode:    model.StrPtr("971"),
			PhoneNumber:    model.StrPtr("501234567"),
		},
		{
			CustomerName:   "Sara Ahmed",
			VisaType:       "Family",
			VisaExpiryDate: today,
		},
		{
			CustomerName:   "John Smith",
			VisaType:       "Tourist",
			VisaExpiryDate: today.AddDate(0, 0, 7),
			CountryCode:    model.StrPtr("+44"),
			PhoneNumber:    model.StrPtr("7700900123"),
		},
		{
			CustomerName:   "Priya Nair",
			VisaType:       "Investor",
			VisaExpiryDate: today.AddDate(0, 1, 0),
			CountryCode:    model.StrPtr("91"),
			PhoneNumber:    model.StrPtr("9876543210"),
		},
	}
}

type customerInserter interface {
	InsertIgnoreDuplicate(ctx context.Context, c model.Customer) (bool, error)
}

func seedCustomers(ctx context.Context, repo customerInserter, now time.Time, loc *time.Location) (int, error) {
	n := 0
	for _, c := range demoCustomers(now, loc) {
		ok, err := repo.InsertIgnoreDuplicate(ctx, c)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"payment_logs", "webhook_logs", "payment_orders", "event_registrations", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		demoEmail := "demo@myotherapp.com"
		var exists int
		row := db.Raw("SELECT 1 FROM users WHERE email = ?", demoEmail).Row()
		if err := row.Scan(&exists); err == nil {
			fmt.Println("demo user already exists:", demoEmail)
		} else {
			if err := db.Exec(
				"INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, true, now(), now())",
				demoEmail, "Demo User", string(hash)).Error; err != nil {
				log.Fatalf("failed to insert demo user: %v", err)
			}
			fmt.Println("Seeded demo user:", demoEmail, "password:", password)
		}

		var userID int64
		if err := db.Raw("SELECT id FROM users WHERE email = ?", demoEmail).Row().Scan(&userID); err != nil {
			log.Fatalf("failed to look up demo user id: %v", err)
		}

		ticketID := uuid.NewString()
		row = db.Raw("SELECT 1 FROM event_registrations WHERE user_id = ? AND event_id = 1", userID).Row()
		if err := row.Scan(&exists); err == nil {
			fmt.Println("demo registration already exists for user", userID)
		} else {
			if err := db.Exec(
				"INSERT INTO event_registrations (event_id, user_id, ticket_id, full_name, email, actual_amount, paid_amount, is_paid, created_at, updated_at) VALUES (1, ?, ?, ?, ?, 500.00, 0, false, ?, ?)",
				userID, ticketID, "Demo User", demoEmail, time.Now(), time.Now()).Error; err != nil {
				log.Fatalf("failed to insert demo registration: %v", err)
			}
			fmt.Println("Seeded demo event registration, ticket:", ticketID)
		}
	},
}

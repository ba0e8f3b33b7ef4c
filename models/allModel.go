package models

import (
	"log"

	"github.com/mmdatafocus/proposals_backend/config"
)

// MigrateTable keeps the relational schema in step on startup.
func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		log.Println("MigrateTable skipped: database not connected")
		return
	}
	err := db.AutoMigrate(
		&Proposal{},
		&SyncAudit{},
	)
	if err != nil {
		log.Printf("AutoMigrate failed: %v", err)
	}
}

package main

import (
	"database/sql"

	"github.com/cargaslack/carga/repository"
)

// Repositories holds one instance of every repository.
type Repositories struct {
	User  repository.UserRepository
	Site  repository.SiteRepository
	Squad repository.SquadRepository
	Log   repository.LogRepository
}

func initRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:  repository.NewSQLiteUserRepo(db),
		Site:  repository.NewSQLiteSiteRepo(db),
		Squad: repository.NewSQLiteSquadRepo(db),
		Log:   repository.NewSQLiteLogRepo(db),
	}
}

package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/auth"
	"github.com/MarcoPoloResearchLab/notebook/internal/config"
	"github.com/MarcoPoloResearchLab/notebook/internal/database"
	"github.com/MarcoPoloResearchLab/notebook/internal/logging"
	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"github.com/MarcoPoloResearchLab/notebook/internal/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type application struct {
	config  config.AppConfig
	logger  *zap.Logger
	sqlDB   *sql.DB
	issuer  *auth.TokenIssuer
	folders *notebook.FolderManager
	notes   *notebook.NoteManager
	tags    *notebook.TagManager
}

// openApplication loads configuration, opens the database and constructs the
// notebook managers bound to the bootstrapped root folder.
func openApplication() (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if appConfig.SeedDemo {
		if err := database.SeedDemo(db, logger); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	store, err := notebook.NewGormStore(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	serviceConfig := notebook.ServiceConfig{
		Store:      store,
		Clock:      time.Now,
		IDProvider: notebook.NewUUIDProvider(),
		Logger:     logger,
	}
	root, err := notebook.EnsureRoot(context.Background(), serviceConfig)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	serviceConfig.RootID = root.ID

	app := &application{config: appConfig, logger: logger, sqlDB: sqlDB}
	if app.folders, err = notebook.NewFolderManager(serviceConfig); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if app.notes, err = notebook.NewNoteManager(serviceConfig); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if app.tags, err = notebook.NewTagManager(serviceConfig); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if appConfig.AuthEnabled() {
		app.issuer, err = auth.NewTokenIssuer(auth.TokenIssuerConfig{
			SigningSecret: []byte(appConfig.AuthSigningSecret),
			Issuer:        appConfig.AuthIssuer,
			TokenTTL:      appConfig.TokenTTL,
		})
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	return app, nil
}

// authenticator returns nil when no signing secret is configured so the API
// runs open.
func (a *application) authenticator() server.RequestAuthenticator {
	if a.issuer == nil {
		return nil
	}
	return a.issuer
}

func (a *application) Close() {
	_ = a.logger.Sync()
	_ = a.sqlDB.Close()
}

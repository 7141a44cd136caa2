package mcdb

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/config"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqliteInMemoryDSN is a shared cache in memory database. Tests that use it
// must limit the pool to one connection.
const SqliteInMemoryDSN = "file::memory:?cache=shared"

const (
	DriverMySQL  = "mysql"
	DriverSqlite = "sqlite"
)

func MakeDSNFromConfig(c config.Configer) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.GetKey("DB_USERNAME"),
		c.GetKey("DB_PASSWORD"),
		c.GetKey("DB_HOST"),
		c.GetKeyWithDefault("DB_PORT", "3306"),
		c.GetKey("DB_DATABASE"))
}

const maxDBRetries = 5

// MustConnectToDB will attempt to connect to the database maxDBRetries times. If it isn't successful
// after that number of retries then it will call log.Fatalf(), which will cause the server to exit.
// Between retry attempts it will sleep for 3 seconds.
//
// DB_DRIVER picks the database. It defaults to mysql; sqlite uses SQLITE_PATH.
func MustConnectToDB(c config.Configer) *gorm.DB {
	var (
		err error
		db  *gorm.DB
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	driver := c.GetKeyWithDefault("DB_DRIVER", DriverMySQL)
	if driver == DriverSqlite {
		db, err = OpenSqlite(c.GetKeyWithDefault("SQLITE_PATH", "mcupload.db"))
		if err != nil {
			log.Fatalf("Failed to open sqlite db: %s", err)
		}

		return db
	}

	if driver != DriverMySQL {
		log.Fatalf("Unknown DB_DRIVER '%s', must be %s or %s", driver, DriverMySQL, DriverSqlite)
	}

	retryCount := 1
	for {
		db, err = gorm.Open(mysql.Open(MakeDSNFromConfig(c)), gormConfig)
		switch {
		case err == nil:
			// Connected to db, yay!
			return db
		case retryCount >= maxDBRetries:
			// Retry limit exceeded :-(
			log.Fatalf("Failed to open db (%s@%s): %s", c.GetKey("DB_DATABASE"), c.GetKey("DB_HOST"), err)
		default:
			// Couldn't connect, so increment count, then wait a bit before trying again.
			retryCount++
			time.Sleep(3 * time.Second)
		}
	}
}

// OpenSqlite opens the sqlite database at dsn with a single connection.
// Sqlite only allows one writer, and a single connection avoids table lock
// errors when requests run concurrently.
func OpenSqlite(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second * 5,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		})

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// RunMigrations creates or updates the tables for every model.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&mcmodel.User{},
		&mcmodel.Folder{},
		&mcmodel.File{},
		&mcmodel.Route{},
		&mcmodel.UserFolder{},
		&mcmodel.UserFile{},
	)
}

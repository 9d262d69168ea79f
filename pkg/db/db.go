package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/thep200/github-stats-pipeline/cfg"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database opens one gorm connection lazily, on MySQL or SQLite depending on
// report.driver.
type Database struct {
	Config  *cfg.Config
	once    sync.Once
	db      *gorm.DB
	initErr error
}

func NewDatabase(config *cfg.Config) (*Database, error) {
	return &Database{
		Config: config,
	}, nil
}

func (d *Database) Driver() string {
	if d.Config.Report.Driver == "" {
		return "sqlite"
	}
	return d.Config.Report.Driver
}

func (d *Database) DSN() string {
	if d.Driver() == "sqlite" {
		return d.Config.Report.SqlPath
	}
	config := mysqlDriver.Config{
		User:                 d.Config.Mysql.Username,
		Passwd:               d.Config.Mysql.Password,
		DBName:               d.Config.Mysql.Database,
		Addr:                 d.Config.Mysql.Host + ":" + d.Config.Mysql.Port,
		Net:                  "tcp",
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	return config.FormatDSN()
}

func (d *Database) dialector() (gorm.Dialector, error) {
	switch d.Driver() {
	case "mysql":
		return mysql.Open(d.DSN()), nil
	case "sqlite":
		path := d.DSN()
		if path == "" {
			return nil, fmt.Errorf("report.sql_path is required for sqlite")
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", d.Driver())
	}
}

func (d *Database) Db() (*gorm.DB, error) {
	d.once.Do(func() {
		// Open connection
		var dialector gorm.Dialector
		dialector, d.initErr = d.dialector()
		if d.initErr != nil {
			return
		}
		var db *gorm.DB
		db, d.initErr = gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if d.initErr != nil {
			return
		}

		// Get sqlDB
		var sqlDB *sql.DB
		sqlDB, d.initErr = db.DB()
		if d.initErr != nil {
			return
		}

		// Setting connection pool
		if d.Driver() == "sqlite" {
			// One writer, and ":memory:" is per connection
			sqlDB.SetMaxOpenConns(1)
		} else {
			sqlDB.SetMaxIdleConns(d.Config.Mysql.MaxIdleConnection)
			sqlDB.SetMaxOpenConns(d.Config.Mysql.MaxOpenConnection)
			sqlDB.SetConnMaxLifetime(time.Duration(d.Config.Mysql.MaxLifeTimeConnection) * time.Second)
		}

		//
		d.db = db
	})
	return d.db, d.initErr
}

func (d *Database) Ping() error {
	db, err := d.Db()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	if d.db != nil {
		sqlDB, err := d.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (d *Database) Migrate(models ...interface{}) error {
	db, err := d.Db()
	if err != nil {
		return err
	}
	return db.AutoMigrate(models...)
}

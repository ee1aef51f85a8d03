package config

import (
	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// DataDir is where pipeline artifacts (CSV files, covers) live
	DataDir string
	// DBFile is the path of the SQLite catalog database
	DBFile string
	// GoogleBooksAPIKey is the optional API key for the Google Books API
	GoogleBooksAPIKey string
)

// InitConfig initializes the global configuration
func InitConfig() {
	// Set default values
	viper.SetDefault("DataDir", "./data")
	viper.SetDefault("DBFile", "./data/books.db")

	// Get values from viper
	DataDir = viper.GetString("DataDir")
	DBFile = viper.GetString("DBFile")
	GoogleBooksAPIKey = viper.GetString("GoogleBooksAPIKey")
}

// SetDataDir sets the artifact directory
func SetDataDir(dir string) {
	DataDir = dir
}

// SetDBFile sets the catalog database path
func SetDBFile(path string) {
	DBFile = path
}

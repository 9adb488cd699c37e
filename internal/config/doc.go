// Package config provides centralized configuration management for Bike Pulse.
//
// # Configuration Sources
//
// Configuration is layered in increasing order of precedence:
//
//  1. Default values (Default)
//  2. YAML configuration file (config.yaml, configs/config.yaml or $BIKE_CONFIG)
//  3. A .env file in the working directory
//  4. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern BIKE_<SECTION>_<FIELD>:
//
//	BIKE_SERVER_PORT=8080
//	BIKE_DATA_SOURCE=file
//	BIKE_PATHS_DATA_DIR=/srv/bike/data
//	BIKE_DATA_REFRESH_INTERVAL=1h
//	BIKE_LOGGING_LEVEL=debug
//	BIKE_CLUSTERS_LOW_CASUAL=25000
//
// # Path Management
//
// PathsConfig.Resolve turns relative directories into absolute paths rooted at
// the base directory:
//
//	paths, err := cfg.Paths.Resolve()
//	dayFile := paths.GetDataPath("day.csv")
//	exportPath := paths.GetExportPath("day_2012.csv")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

package config

import "time"

var ParseLevel = parseLevel

func NewRepositoryForTest(backend, projectID, sqlDialect, sqlDSN string, migrate bool) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		sqlDialect: sqlDialect,
		sqlDSN:     sqlDSN,
		sqlMigrate: migrate,
	}
}

func NewMetaForTest(appID, appSecret, baseURL, platformFile string) *Meta {
	return &Meta{
		appID:        appID,
		appSecret:    appSecret,
		baseURL:      baseURL,
		platformFile: platformFile,
	}
}

func NewSessionForTest(secret string) *Session {
	return &Session{secret: secret, issuer: "socialink-test"}
}

func NewAdminForTest(secret string, ttl time.Duration, operator string) *Admin {
	return &Admin{secret: secret, grantTTL: ttl, operator: operator}
}

func NewInstagramForTest(interval, window time.Duration) *Instagram {
	return &Instagram{refreshInterval: interval, refreshWindow: window}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

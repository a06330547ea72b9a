// Package db opens the PostgreSQL connection shared by the gorm stores.
//
//	database, err := db.Connect(db.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The URL comes from DATABASE_URL unless Config.URL is set.
package db

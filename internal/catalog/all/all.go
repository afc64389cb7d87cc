// Package all links every catalog backend into the binary.
package all

import (
	_ "apiweaver/internal/catalog/mssql"
	_ "apiweaver/internal/catalog/postgres"
	_ "apiweaver/internal/catalog/sqlite"
)

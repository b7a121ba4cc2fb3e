package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradepruf/internal/types"
)

type ParquetWriterTestSuite struct {
	suite.Suite
}

func TestParquetWriterSuite(t *testing.T) {
	suite.Run(t, new(ParquetWriterTestSuite))
}

func (suite *ParquetWriterTestSuite) TestWriteAndReadBack() {
	path := filepath.Join(suite.T().TempDir(), "bars.parquet")
	parquetWriter := NewParquetWriter(path)

	suite.Require().NoError(parquetWriter.Initialize())

	defer parquetWriter.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		suite.Require().NoError(parquetWriter.Write(types.MarketData{
			Symbol: "AAPL",
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100.5 + float64(i),
			Volume: 1000,
		}))
	}

	written, err := parquetWriter.Finalize()
	suite.Require().NoError(err)
	suite.Equal(path, written)
	suite.FileExists(path)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)

	defer db.Close()

	var count int

	row := db.QueryRow(fmt.Sprintf(`SELECT count(*) FROM read_parquet('%s')`, path))
	suite.Require().NoError(row.Scan(&count))
	suite.Equal(10, count)

	var symbol string

	var closePrice float64

	row = db.QueryRow(fmt.Sprintf(`SELECT symbol, close FROM read_parquet('%s') ORDER BY time LIMIT 1`, path))
	suite.Require().NoError(row.Scan(&symbol, &closePrice))
	suite.Equal("AAPL", symbol)
	suite.InDelta(100.5, closePrice, 1e-9)
}

func (suite *ParquetWriterTestSuite) TestWriteBeforeInitializeFails() {
	parquetWriter := NewParquetWriter(filepath.Join(suite.T().TempDir(), "bars.parquet"))

	suite.Error(parquetWriter.Write(types.MarketData{}))

	_, err := parquetWriter.Finalize()
	suite.Error(err)
}

func (suite *ParquetWriterTestSuite) TestCloseWithoutFinalizeRollsBack() {
	path := filepath.Join(suite.T().TempDir(), "bars.parquet")
	parquetWriter := NewParquetWriter(path)

	suite.Require().NoError(parquetWriter.Initialize())
	suite.Require().NoError(parquetWriter.Write(types.MarketData{Symbol: "AAPL", Time: time.Now()}))
	suite.NoError(parquetWriter.Close())
	suite.NoFileExists(path)
}

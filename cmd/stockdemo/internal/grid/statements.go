package grid

import "fmt"

const (
	TradesMapping    = "trades"
	CompaniesMap     = "companies"
	TradeMap         = "trade_map"
	IngestTradesJob  = "ingest_trades"
	tradeMapColumns  = "id, ticker, name, price, qty"
	selectTradeMap   = "SELECT " + tradeMapColumns + " FROM " + TradeMap
	selectRawTrades  = "SELECT * FROM " + TradesMapping
	dropIngestTrades = "DROP JOB IF EXISTS " + IngestTradesJob
)

// createTradesMapping maps the Kafka topic as a streaming source.
func createTradesMapping(topic, bootstrapServers string) string {
	return fmt.Sprintf(`CREATE OR REPLACE MAPPING %s (
    id     BIGINT,
    ticker VARCHAR,
    price  DECIMAL,
    qty    BIGINT
)
TYPE Kafka
OPTIONS (
    'valueFormat' = 'json-flat',
    'bootstrap.servers' = '%s'
)`, mappingName(topic), bootstrapServers)
}

// mappingName returns the external topic under the mapping name the job
// expects; a differently named topic is referenced through EXTERNAL NAME.
func mappingName(topic string) string {
	if topic == TradesMapping {
		return TradesMapping
	}
	return fmt.Sprintf("%s EXTERNAL NAME \"%s\"", TradesMapping, topic)
}

const createCompaniesMapping = `CREATE OR REPLACE MAPPING ` + CompaniesMap + ` (
    ticker VARCHAR,
    name   VARCHAR,
    cap    DECIMAL
)
TYPE IMap
OPTIONS (
    'keyFormat' = 'varchar',
    'valueFormat' = 'json-flat'
)`

const createTradeMapMapping = `CREATE OR REPLACE MAPPING ` + TradeMap + ` (
    id     BIGINT,
    ticker VARCHAR,
    name   VARCHAR,
    price  DECIMAL,
    qty    BIGINT
)
TYPE IMap
OPTIONS (
    'keyFormat' = 'bigint',
    'valueFormat' = 'json-flat'
)`

// SINK INTO rather than INSERT INTO: a re-evaluated join overwrites the row.
const createIngestTradesJob = `CREATE JOB ` + IngestTradesJob + ` AS
SINK INTO ` + TradeMap + ` (__key, id, ticker, name, price, qty)
SELECT trades.id, trades.id, trades.ticker, companies.name, trades.price, trades.qty
FROM ` + TradesMapping + ` AS trades
JOIN ` + CompaniesMap + ` AS companies
ON companies.ticker = trades.ticker`

// TradeMapQuery returns the materialized rows newer than the watermark. The
// WHERE clause is omitted entirely when nothing was seen yet, so no sentinel
// id ever reaches the query layer.
func TradeMapQuery(after int64, hasWatermark bool) (string, []interface{}) {
	if !hasWatermark {
		return selectTradeMap, nil
	}
	return selectTradeMap + " WHERE id > ?", []interface{}{after}
}

// RawTradesQuery streams the topic through its mapping.
func RawTradesQuery() string { return selectRawTrades }

package core

import (
	"go.opentelemetry.io/otel"

	"gradeway-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

var tracer = otel.Tracer("gradeway.lib.scrapers.moodle.core")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput routes request/response dumps somewhere
// inspectable, usually a directory during local debugging.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

func instrumentClient(client *resty.Client) {
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
}

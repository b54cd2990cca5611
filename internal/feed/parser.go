package feed

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/model"
)

var (
	// ErrMalformedRecord marks a line that cannot be decoded. The caller
	// counts and drops it.
	ErrMalformedRecord = eris.New("malformed record")

	// ErrSkipped marks a well-formed line that is intentionally not
	// ingested, such as a deleted item.
	ErrSkipped = eris.New("record skipped")
)

// ParserOptions configures a Parser.
type ParserOptions struct {
	Delimiter string
	MinFields int
}

// Parser decodes inventory lines. It is stateless and safe for concurrent
// use.
type Parser struct {
	delimiter string
	minFields int
}

// NewParser creates a Parser, defaulting to ";" and MinFields.
func NewParser(opts ParserOptions) *Parser {
	p := &Parser{delimiter: ";", minFields: MinFields}
	if opts.Delimiter != "" {
		p.delimiter = opts.Delimiter
	}
	if opts.MinFields > 0 {
		p.minFields = opts.MinFields
	}
	return p
}

// Parse decodes one inventory line. It returns ErrMalformedRecord for short
// or unidentifiable lines and ErrSkipped for deleted items.
func (p *Parser) Parse(line string) (*RawRecord, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, eris.Wrap(ErrMalformedRecord, "feed: empty line")
	}

	fields := strings.Split(line, p.delimiter)
	if len(fields) < p.minFields {
		return nil, eris.Wrapf(ErrMalformedRecord, "feed: %d fields, want at least %d", len(fields), p.minFields)
	}

	get := func(i int) string {
		return sanitizeUTF8(trimQuotes(fields[i]))
	}

	stock := get(idxStockNumber)
	if stock == "" {
		return nil, eris.Wrap(ErrMalformedRecord, "feed: missing stock number")
	}

	lifecycle := parseLifecycle(get(idxLifecycle))
	if lifecycle == model.LifecycleDeleted {
		return nil, eris.Wrapf(ErrSkipped, "feed: %s is deleted", stock)
	}

	blocked := parseBoolYN(get(idxDropShipBlocked))
	rec := &RawRecord{
		StockNumber:            stock,
		UPC:                    get(idxUPC),
		Description:            get(idxDescription),
		ExpandedDescription:    get(idxExpandedDesc),
		DepartmentCode:         model.NormalizeDepartment(get(idxDepartment)),
		ManufacturerID:         get(idxManufacturerID),
		ManufacturerName:       get(idxManufacturer),
		ManufacturerPartNumber: get(idxMfrPartNumber),
		Model:                  get(idxModel),
		MSRP:                   parseFloat64Or(get(idxMSRP), 0),
		DealerCost:             parseFloat64Or(get(idxDealerCost), 0),
		MAPPrice:               parseFloat64Or(get(idxMAP), 0),
		Weight:                 parseFloat64Or(get(idxWeight), 0),
		Length:                 parseFloat64Or(get(idxLength), 0),
		Width:                  parseFloat64Or(get(idxWidth), 0),
		Height:                 parseFloat64Or(get(idxHeight), 0),
		QuantityOnHand:         parseIntOr(get(idxQuantity), 0),
		Lifecycle:              lifecycle,
		ImageName:              get(idxImageName),
		RestrictedStates:       decodeStates(fields[idxStatesStart : idxStatesStart+len(StateCodes)]),
		GroundShipOnly:         parseBoolYN(get(idxGroundShipOnly)),
		AdultSignatureRequired: parseBoolYN(get(idxAdultSignature)),
		DropShipBlocked:        blocked,
		MayDropShip:            !blocked,
		DateEntered:            parseDate(get(idxDateEntered)),
		ImageDisclaimer:        parseBoolYN(get(idxImageDisclaimer)),
		Prop65:                 parseBoolYN(get(idxProp65)),
		VendorApprovalRequired: parseBoolYN(get(idxVendorApproval)),
	}
	return rec, nil
}

// decodeStates turns the fixed block of Y/N flags into state codes.
func decodeStates(flags []string) []string {
	var out []string
	for i, f := range flags {
		if parseBoolYN(f) {
			out = append(out, StateCodes[i])
		}
	}
	return out
}

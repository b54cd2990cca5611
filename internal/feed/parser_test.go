package feed

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-sync/internal/model"
)

// inventoryLine builds a well-formed 77-field line and applies overrides by
// field index.
func inventoryLine(overrides map[int]string) string {
	fields := make([]string, MinFields)
	for i := range fields {
		fields[i] = "N"
	}
	fields[idxStockNumber] = "GLPA175S201"
	fields[idxUPC] = "764503022616"
	fields[idxDescription] = "GLOCK 17 GEN5 9MM 17RD BLK"
	fields[idxDepartment] = "01"
	fields[idxManufacturerID] = "GLOCK"
	fields[idxMSRP] = "749.99"
	fields[idxDealerCost] = "525.00"
	fields[idxWeight] = "2.1"
	fields[idxQuantity] = "14"
	fields[idxModel] = "G17 GEN5"
	fields[idxManufacturer] = "Glock"
	fields[idxMfrPartNumber] = "PA175S201"
	fields[idxLifecycle] = ""
	fields[idxExpandedDesc] = "Glock 17 Gen5 9mm 4.49\" barrel"
	fields[idxImageName] = "GLPA175S201_1.jpg"
	fields[idxDateEntered] = "20240115"
	fields[idxMAP] = "599.99"
	fields[idxLength] = "9"
	fields[idxWidth] = "7"
	fields[idxHeight] = "3"
	for i, v := range overrides {
		fields[i] = v
	}
	return strings.Join(fields, ";")
}

func TestParse_WellFormed(t *testing.T) {
	p := NewParser(ParserOptions{})

	rec, err := p.Parse(inventoryLine(map[int]string{
		idxStatesStart + 4: "Y", // CA
		idxStatesStart + 7: "Y", // DC
		idxAdultSignature:  "Y",
	}))
	require.NoError(t, err)

	assert.Equal(t, "GLPA175S201", rec.StockNumber)
	assert.Equal(t, "764503022616", rec.UPC)
	assert.Equal(t, "01", rec.DepartmentCode)
	assert.Equal(t, "Glock", rec.ManufacturerName)
	assert.InDelta(t, 749.99, rec.MSRP, 0.001)
	assert.InDelta(t, 525.00, rec.DealerCost, 0.001)
	assert.InDelta(t, 599.99, rec.MAPPrice, 0.001)
	assert.Equal(t, 14, rec.QuantityOnHand)
	assert.Equal(t, model.LifecycleActive, rec.Lifecycle)
	assert.Equal(t, []string{"CA", "DC"}, rec.RestrictedStates)
	assert.True(t, rec.RestrictedIn("CA"))
	assert.False(t, rec.RestrictedIn("TX"))
	assert.True(t, rec.AdultSignatureRequired)
	assert.False(t, rec.DropShipBlocked)
	assert.True(t, rec.MayDropShip)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), rec.DateEntered)
	assert.InDelta(t, 9.0, rec.Length, 0.001)
}

func TestParse_DropShipBlockedInvertsFlag(t *testing.T) {
	p := NewParser(ParserOptions{})

	rec, err := p.Parse(inventoryLine(map[int]string{idxDropShipBlocked: "Y"}))
	require.NoError(t, err)
	assert.True(t, rec.DropShipBlocked)
	assert.False(t, rec.MayDropShip)
}

func TestParse_TooFewFieldsIsMalformed(t *testing.T) {
	p := NewParser(ParserOptions{})
	line := strings.Join(make([]string, 40), ";")

	_, err := p.Parse(line)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.False(t, errors.Is(err, ErrSkipped))
}

func TestParse_DeletedIsSkipped(t *testing.T) {
	p := NewParser(ParserOptions{})

	for _, status := range []string{"Deleted", "D", "deleted"} {
		t.Run(status, func(t *testing.T) {
			_, err := p.Parse(inventoryLine(map[int]string{idxLifecycle: status}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSkipped))
			assert.False(t, errors.Is(err, ErrMalformedRecord))
		})
	}
}

func TestParse_Lifecycle(t *testing.T) {
	p := NewParser(ParserOptions{})

	tests := []struct {
		raw  string
		want model.Lifecycle
	}{
		{"Allocated", model.LifecycleAllocated},
		{"A", model.LifecycleAllocated},
		{"Closeout", model.LifecycleCloseout},
		{"c", model.LifecycleCloseout},
		{"", model.LifecycleActive},
		{"X", model.LifecycleActive},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rec, err := p.Parse(inventoryLine(map[int]string{idxLifecycle: tt.raw}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Lifecycle)
		})
	}
}

func TestParse_MissingStockNumber(t *testing.T) {
	p := NewParser(ParserOptions{})

	_, err := p.Parse(inventoryLine(map[int]string{idxStockNumber: "  "}))
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}

func TestParse_EmptyLine(t *testing.T) {
	_, err := NewParser(ParserOptions{}).Parse("\r\n")
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}

func TestParse_LenientNumbers(t *testing.T) {
	p := NewParser(ParserOptions{})

	rec, err := p.Parse(inventoryLine(map[int]string{
		idxMSRP:       "$1,299.00",
		idxDealerCost: "",
		idxMAP:        "n/a",
		idxQuantity:   "12.0",
	}))
	require.NoError(t, err)
	assert.InDelta(t, 1299.0, rec.MSRP, 0.001)
	assert.Zero(t, rec.DealerCost)
	assert.Zero(t, rec.MAPPrice)
	assert.Equal(t, 12, rec.QuantityOnHand)
}

func TestParse_SingleDigitDepartmentIsPadded(t *testing.T) {
	rec, err := NewParser(ParserOptions{}).Parse(inventoryLine(map[int]string{idxDepartment: "5"}))
	require.NoError(t, err)
	assert.Equal(t, "05", rec.DepartmentCode)
}

func TestParse_CustomDelimiter(t *testing.T) {
	line := strings.ReplaceAll(inventoryLine(nil), ";", "|")

	rec, err := NewParser(ParserOptions{Delimiter: "|"}).Parse(line)
	require.NoError(t, err)
	assert.Equal(t, "GLPA175S201", rec.StockNumber)
}

func TestParse_TrailingCarriageReturn(t *testing.T) {
	rec, err := NewParser(ParserOptions{}).Parse(inventoryLine(map[int]string{idxVendorApproval: "Y"}) + "\r")
	require.NoError(t, err)
	assert.True(t, rec.VendorApprovalRequired)
}

func TestRawRecordText(t *testing.T) {
	r := &RawRecord{Description: "SCOPE 4-16X44", ExpandedDescription: "Vortex Viper"}
	assert.Equal(t, "SCOPE 4-16X44 Vortex Viper", r.Text())

	r.ExpandedDescription = ""
	assert.Equal(t, "SCOPE 4-16X44", r.Text())
}

func TestStateCodes(t *testing.T) {
	assert.Len(t, StateCodes, 51)
	assert.Equal(t, idxGroundShipOnly, idxStatesStart+len(StateCodes))
}

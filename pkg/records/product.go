package records

import "fmt"

// Product field names.
const (
	FieldItemCode      = "itemCode"
	FieldItemName      = "itemName"
	FieldBrandName     = "brandName"
	FieldFlavour       = "flavour"
	FieldPackGroup     = "packGroup"
	FieldStyle         = "style"
	FieldPackType      = "packType"
	FieldNOB           = "nob"
	FieldMRP           = "mrp"
	FieldDiscountPrice = "discountPrice"
)

// ProductColumns is the fixed product column order shown by default.
var ProductColumns = []string{
	FieldItemCode,
	FieldFlavour,
	FieldBrandName,
	FieldItemName,
	FieldPackGroup,
	FieldStyle,
	FieldPackType,
	FieldNOB,
	FieldMRP,
	FieldDiscountPrice,
}

// productSources maps each product field to the raw backend keys it is read
// from, first truthy wins.
var productSources = []struct {
	field string
	raw   []string
}{
	{FieldItemCode, []string{"ITEMID", "itemCode"}},
	{FieldItemName, []string{"ITEMNAME", "itemName"}},
	{FieldFlavour, []string{"FLAVOURTYPE", "flavour"}},
	{FieldBrandName, []string{"BRANDNAME", "brandName"}},
	{FieldPackGroup, []string{"PACKTYPEGROUPNAME", "packGroup"}},
	{FieldStyle, []string{"Style", "style"}},
	{FieldPackType, []string{"PACKTYPE", "packType"}},
	{FieldNOB, []string{"NOB", "nob"}},
	{FieldMRP, []string{"Configuration", "mrp"}},
}

// ProductKey is the local key of the i-th product.
func ProductKey(i int) string {
	return fmt.Sprintf("prod-%d", i)
}

// FromRawProducts maps backend product documents into records. Every record
// starts with a zero discount price.
func FromRawProducts(raw []map[string]interface{}) []Record {
	out := make([]Record, 0, len(raw))
	for i, doc := range raw {
		fields := make(map[string]interface{}, len(productSources)+1)
		for _, src := range productSources {
			fields[src.field] = pick(doc, src.raw...)
		}
		fields[FieldDiscountPrice] = 0.0
		out = append(out, New(ProductKey(i), rawID(doc), fields))
	}
	return out
}

func pick(doc map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := doc[k]; ok && !IsFalsy(v) {
			return v
		}
	}
	return ""
}

func rawID(doc map[string]interface{}) string {
	for _, k := range []string{IDField, "id"} {
		if v, ok := doc[k]; ok && !IsFalsy(v) {
			return ValueString(v)
		}
	}
	return ""
}

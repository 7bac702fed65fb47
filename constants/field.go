package constants

// FieldName identifies an extracted field. Values are stable: they appear in
// rule files, JSON results and storage.
type FieldName string

const (
	FieldCertificateNo FieldName = "certificate_no"
	FieldContractNo    FieldName = "contract_no"
	FieldUnitNo        FieldName = "unit_no"
	FieldAddress       FieldName = "address"
	FieldPersonName    FieldName = "person_name"
	FieldIDNumber      FieldName = "id_number"
	FieldDate          FieldName = "date"
	FieldArea          FieldName = "area"
	FieldAmount        FieldName = "amount"
)

// FieldNames lists every field in canonical order.
var FieldNames = []FieldName{
	FieldCertificateNo,
	FieldContractNo,
	FieldUnitNo,
	FieldAddress,
	FieldPersonName,
	FieldIDNumber,
	FieldDate,
	FieldArea,
	FieldAmount,
}

func FieldNamesAsStrings() []string {
	result := make([]string, 0, len(FieldNames))
	for _, f := range FieldNames {
		result = append(result, string(f))
	}
	return result
}

// Registry columns understood by the matcher. Anything else lands in PropertyRecord.Extra.
const (
	ColumnRecordID      = "record_id"
	ColumnCertificateNo = "certificate_no"
	ColumnOwnerName     = "owner_name"
	ColumnAddress       = "address"
	ColumnUnitNo        = "unit_no"
	ColumnIDNumber      = "id_number"
)

var RegistryColumns = []string{
	ColumnCertificateNo,
	ColumnOwnerName,
	ColumnAddress,
	ColumnUnitNo,
	ColumnIDNumber,
}

package dbload

// Staging table names
const (
	ClaimsTable  = "claimstbl"
	AppealsTable = "appealstbl"
)

// ClaimsDateLayouts are tried in order for claims date cells
var ClaimsDateLayouts = []string{
	"01/02/2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AppealsDateLayouts are tried in order for appeals date cells
var AppealsDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
}

// ClaimsTableSpec maps the weekly claims sheet, including the derived claim
// number columns, onto claimstbl. Headers absent from the sheet load as NULL.
func ClaimsTableSpec() *TableSpec {
	return &TableSpec{
		Name:           ClaimsTable,
		Columns:        claimsColumns(),
		DateColumns:    []string{"ENCOUNTER_DATE_DD_MM_YYYY", "DATE_CLAIM_RECEIVED", "ReviewedDate", "PostedDate", "PaidDate"},
		NumericColumns: []string{"PA_AMOUNT", "AMOUNT_CLAIMED", "NO_OF_UNITS"},
		DateLayouts:    ClaimsDateLayouts,
	}
}

// AppealsTableSpec maps a compiled appeals sheet onto appealstbl. Every
// column must be present.
func AppealsTableSpec() *TableSpec {
	columns := []string{
		"S_N", "CLAIM_TYPE", "BATCH_NUMBER", "HOSPITAL", "NUMBER_OF_CLAIMS",
		"ENCOUNTER_MONTH", "DATE_OF_RECEIPT", "APPROVED_PA_VALUE_N",
		"AMOUNT_RECOMMENDED_FOR_PAYMENT_N", "VARIANCE", "VARIANCE1", "NARRATION",
		"Source_File", "PROVIDER_CODE", "Paiddate", "SCH_NO", "APPEAL_NO", "SCH_NUM",
	}
	mappings := make([]ColumnMapping, len(columns))
	for i, c := range columns {
		mappings[i] = ColumnMapping{Source: c, Column: c}
	}
	return &TableSpec{
		Name:              AppealsTable,
		Columns:           mappings,
		DateColumns:       []string{"DATE_OF_RECEIPT", "Paiddate"},
		RequireAllColumns: true,
		DateLayouts:       AppealsDateLayouts,
	}
}

func claimsColumns() []ColumnMapping {
	return []ColumnMapping{
		{Source: "S/N", Column: "S_N"},
		{Source: "DCO NAME", Column: "DCO_NAME"},
		{Source: "PROVIDER NAME", Column: "PROVIDER_NAME"},
		{Source: "PROVIDER CODE", Column: "PROVIDER_CODE"},
		{Source: "FIRST NAME", Column: "FIRST_NAME"},
		{Source: "MIDDLE NAME", Column: "MIDDLE_NAME"},
		{Source: "SURNAME", Column: "SURNAME"},
		{Source: "ENROLLEE NAME", Column: "ENROLLEE_NAME"},
		{Source: "AVON OLD ENROLEEID", Column: "AVON_OLD_ENROLEEID"},
		{Source: "MEMBER NO", Column: "MEMBER_NO"},
		{Source: "PLAN NAME", Column: "PLAN_NAME"},
		{Source: "SEX", Column: "SEX"},
		{Source: "ICD Codes", Column: "ICD_Codes"},
		{Source: "DIAGNOSIS", Column: "DIAGNOSIS"},
		{Source: "CPT CODES", Column: "CPT_CODES"},
		{Source: "SERVICE DESCRIPTION", Column: "SERVICE_DESCRIPTION"},
		{Source: "PA AMOUNT", Column: "PA_AMOUNT"},
		{Source: "ENCOUNTER DATE (DD/MM/YYYY)", Column: "ENCOUNTER_DATE_DD_MM_YYYY"},
		{Source: "NO. OF UNITS", Column: "NO_OF_UNITS"},
		{Source: "AMOUNT CLAIMED", Column: "AMOUNT_CLAIMED"},
		{Source: "DATE CLAIM RECEIVED", Column: "DATE_CLAIM_RECEIVED"},
		{Source: "AVONPACODE", Column: "AVONPACODE"},
		{Source: "CLAIMS INTERN", Column: "CLAIMS_INTERN"},
		{Source: "IS PA ATTACHED", Column: "IS_PA_ATTACHED"},
		{Source: "FIRST NAME MATCH", Column: "FIRST_NAME_MATCH"},
		{Source: "MIDDLE NAME MATCH", Column: "MIDDLE_NAME_MATCH"},
		{Source: "SURNAME MATCH", Column: "SURNAME_MATCH"},
		{Source: "ANY 2 OF THE 3 NAMES MATCH", Column: "ANY_2_OF_THE_3_NAMES_MATCH"},
		{Source: "SEX MATCH", Column: "SEX_MATCH"},
		{Source: "DIAGNOSIS MATCH", Column: "DIAGNOSIS_MATCH"},
		{Source: "SERVICE MATCH", Column: "SERVICE_MATCH"},
		{Source: "ENC DATE MATCH", Column: "ENC_DATE_MATCH"},
		{Source: "UNIT MATCH", Column: "UNIT_MATCH"},
		{Source: "AMOUNT MATCH", Column: "AMOUNT_MATCH"},
		{Source: "CLAIM CATEGORY", Column: "CLAIM_CATEGORY"},
		{Source: "PROVIDER RISK RATING", Column: "PROVIDER_RISK_RATING"},
		{Source: "IS ENROLLEE REGISTD. WITH THIS PROVIDER", Column: "IS_ENROLLEE_REGISTD_WITH_THIS_PROVIDER"},
		{Source: "IS ENROLLEE ACTIVE", Column: "IS_ENROLLEE_ACTIVE"},
		{Source: "IS ENROLLEE CAPITATED", Column: "IS_ENROLLEE_CAPITATED"},
		{Source: "CLAIMS VETTER", Column: "CLAIMS_VETTER"},
		{Source: "PROVIDER ALLOCATION", Column: "PROVIDER_ALLOCATION"},
		{Source: "IS PA REQUIRED", Column: "IS_PA_REQUIRED"},
		{Source: "REASON FOR PA REQUIREMENT", Column: "REASON_FOR_PA_REQUIREMENT"},
		{Source: "IS SERVCE COVERED BY PLAN", Column: "IS_SERVCE_COVERED_BY_PLAN"},
		{Source: "WAITING PERIOD START DATE", Column: "WAITING_PERIOD_START_DATE"},
		{Source: "WAITING PERIOD END DATE", Column: "WAITING_PERIOD_END_DATE"},
		{Source: "WAS WAITING PERIOD OBSERVED", Column: "WAS_WAITING_PERIOD_OBSERVED"},
		{Source: "APPLICABLE LIMIT (UNITS)", Column: "APPLICABLE_LIMIT_UNITS"},
		{Source: "CUMMUL. UNIT USED PTD", Column: "CUMMUL_UNIT_USED_PTD"},
		{Source: "UNITS IN THIS CLAIM", Column: "UNITS_IN_THIS_CLAIM"},
		{Source: "BAL. UNIT LEFT AFTER THIS CLAIM", Column: "BAL_UNIT_LEFT_AFTER_THIS_CLAIM"},
		{Source: "APPLICABLE LIMITS (NAIRA)", Column: "APPLICABLE_LIMITS_NAIRA"},
		{Source: "CUMMUL. NAIRA VALUE USED PTD", Column: "CUMMUL_NAIRA_VALUE_USED_PTD"},
		{Source: "NAIRA VALUE OF THIS REQUEST", Column: "NAIRA_VALUE_OF_THIS_REQUEST"},
		{Source: "BAL. NAIRA LEFT AFTER THIS CLAIM", Column: "BAL_NAIRA_LEFT_AFTER_THIS_CLAIM"},
		{Source: "IS PROVIDER ACCREDITED TO PROVIDE SERVICE?", Column: "IS_PROVIDER_ACCREDITED_TO_PROVIDE_SERVICE"},
		{Source: "WAS ACCURATE TARIFF USED", Column: "WAS_ACCURATE_TARIFF_USED"},
		{Source: "CLAIMS OFFICER RECOMMD. AMT", Column: "CLAIMS_OFFICER_RECOMMD_AMT"},
		{Source: "DIFF BTW CO RECOMMEND. &  CLAIMED", Column: "DIFF_BTW_CO_RECOMMEND_CLAIMED"},
		{Source: "REASON FOR DIFF BTW AMT CLAIMED & AMT PAID", Column: "REASON_FOR_DIFF_BTW_AMT_CLAIMED_AMT_PAID"},
		{Source: "COMMENT/REFERENCE", Column: "COMMENT_REFERENCE"},
		{Source: "Additional services related to the PA originally issued", Column: "Additional_services_related_to_the_PA_originally_issued"},
		{Source: "Agreed tariff applied (Higher)", Column: "Agreed_tariff_applied_Higher"},
		{Source: "Agreed tariff applied (Lower)", Column: "Agreed_tariff_applied_Lower"},
		{Source: "No tariff applied", Column: "No_tariff_applied"},
		{Source: "Primary care Services (PA not Required)", Column: "Primary_care_Services_PA_not_Required"},
		{Source: "PA PREVIOUSLY PAID", Column: "PA_PREVIOUSLY_PAID"},
		{Source: "TARIFF CHECK", Column: "TARIFF_CHECK"},
		{Source: "IS SERVCE COVERED BY PLAN.1", Column: "IS_SERVCE_COVERED_BY_PLAN2"},
		{Source: "MGR RECOMMD. AMT", Column: "MGR_RECOMMD_AMT"},
		{Source: "DIFF BTW MGR RECOMMD. &  CLAIMED", Column: "DIFF_BTW_MGR_RECOMMD_CLAIMED"},
		{Source: "REASON FOR DIFF BTW AMT CLAIMED & AMT PAID.1", Column: "REASON_FOR_DIFF_BTW_AMT_CLAIMED_AMT_PAID3"},
		{Source: "COMMENT/REFERENCE.1", Column: "COMMENT_REFERENCE4"},
		{Source: "DIAGNOSIS CONSISTENT WITH ENROLLEE'S AGE", Column: "DIAGNOSIS_CONSISTENT_WITH_ENROLLEE_S_AGE"},
		{Source: "DIAGNOSIS CONSISTENT WITH ENROLLEE'S GENDER", Column: "DIAGNOSIS_CONSISTENT_WITH_ENROLLEE_S_GENDER"},
		{Source: "DIAGNOSIS CONSISTENT WITH SERVICE STATED", Column: "DIAGNOSIS_CONSISTENT_WITH_SERVICE_STATED"},
		{Source: "SERVICE CONSISTENT WITH DIAGNOSIS STATED", Column: "SERVICE_CONSISTENT_WITH_DIAGNOSIS_STATED"},
		{Source: "SERVICE CONSISTENT WITH ENROLLEE'S AGE", Column: "SERVICE_CONSISTENT_WITH_ENROLLEE_S_AGE"},
		{Source: "SERVICE CONSISTENT WITH ENROLLEE'S GENDER", Column: "SERVICE_CONSISTENT_WITH_ENROLLEE_S_GENDER"},
		{Source: "SERVICE CONSISTENT WITH TREATMENT PROTOCOL", Column: "SERVICE_CONSISTENT_WITH_TREATMENT_PROTOCOL"},
		{Source: "HOD RECOMMD. AMOUNT", Column: "HOD_RECOMMD_AMOUNT"},
		{Source: "DIFF BTW HOD RECOMMD. &  CLAIMED", Column: "DIFF_BTW_HOD_RECOMMD_CLAIMED"},
		{Source: "REASON FOR DIFF BTW AMT CLAIMED & AMT RECOMMENDED", Column: "REASON_FOR_DIFF_BTW_AMT_CLAIMED_AMT_RECOMMENDED"},
		{Source: "COMMENT/REFERENCE.2", Column: "COMMENT_REFERENCE5"},
		{Source: "DIFF BTW PA AMOUNT & AMOUNT RECOMMENDED", Column: "DIFF_BTW_PA_AMOUNT_AMOUNT_RECOMMENDED"},
		{Source: "REASON FOR VARIANCE BTW PA AMOUNT & AMOUNT RECOMMENDED", Column: "REASON_FOR_VARIANCE_BTW_PA_AMOUNT_AMOUNT_RECOMMENDED"},
		{Source: "COMMENT/REFERENCE.3", Column: "COMMENT_REFERENCE6"},
		{Source: "SCH NO", Column: "SCH_NO"},
		{Source: "Name & Date", Column: "Name_Date"},
		{Source: "Enrollee & Date", Column: "Enrollee_Date"},
		{Source: "ReviewedDate", Column: "ReviewedDate"},
		{Source: "PostedDate", Column: "PostedDate"},
		{Source: "PaidDate", Column: "PaidDate"},
		{Source: "ClaimBatch", Column: "ClaimBatch"},
		{Source: "ClaimNoFnx", Column: "ClaimNoFnx"},
		{Source: "ClaimNo", Column: "ClaimNo"},
		{Source: "Correct_ClaimNo", Column: "Correct_ClaimNo"},
		{Source: "Benefits", Column: "Benefits"},
		{Source: "ProviderClass", Column: "ProviderClass"},
		{Source: "OpdIpd", Column: "OpdIpd"},
	}
}

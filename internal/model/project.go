package model

// Category is stored as its Chinese label so backups stay compatible with
// files exported by the browser version.
type Category string

const (
	CategoryEngineering Category = "工程"
	CategoryService     Category = "服务"
	CategoryProcurement Category = "采购"
)

// IsValid returns true if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryEngineering, CategoryService, CategoryProcurement:
		return true
	}
	return false
}

// ParseCategory accepts either the stored label or the English name.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "engineering", string(CategoryEngineering):
		return CategoryEngineering, true
	case "service", string(CategoryService):
		return CategoryService, true
	case "procurement", string(CategoryProcurement):
		return CategoryProcurement, true
	}
	return "", false
}

// Milestone is the project event a payment term is anchored to.
type Milestone string

const (
	MilestoneContractSign          Milestone = "contract_sign_date"
	MilestoneStartApplication      Milestone = "start_application"
	MilestoneCompletionApplication Milestone = "completion_application"
	MilestoneAcceptanceCertificate Milestone = "acceptance_certificate"
	MilestoneSettlementAudit       Milestone = "settlement_audit"
)

// IsValid returns true if the milestone is a known value.
func (m Milestone) IsValid() bool {
	switch m {
	case MilestoneContractSign, MilestoneStartApplication, MilestoneCompletionApplication,
		MilestoneAcceptanceCertificate, MilestoneSettlementAudit:
		return true
	}
	return false
}

// Label returns the human-readable milestone name.
func (m Milestone) Label() string {
	switch m {
	case MilestoneContractSign:
		return "合同签署"
	case MilestoneStartApplication:
		return "开工申请"
	case MilestoneCompletionApplication:
		return "完工申请"
	case MilestoneAcceptanceCertificate:
		return "验收证书"
	case MilestoneSettlementAudit:
		return "结算审核"
	}
	return string(m)
}

type AwardNotice struct {
	AwardDate          string  `json:"awardDate" yaml:"awardDate"`
	ContractSignDays   int     `json:"contractSignDays" yaml:"contractSignDays"`
	IsWorkingDays      bool    `json:"isWorkingDays" yaml:"isWorkingDays"`
	WinningUnit        string  `json:"winningUnit" yaml:"winningUnit"`
	ProjectManagerName string  `json:"projectManagerName" yaml:"projectManagerName"`
	ProjectManagerID   string  `json:"projectManagerId" yaml:"projectManagerId"`
	WinningPrice       float64 `json:"winningPrice" yaml:"winningPrice"`
	ProjectDuration    int     `json:"projectDuration" yaml:"projectDuration"`
}

type PaymentTerm struct {
	Name               string    `json:"name" yaml:"name"`
	Milestone          Milestone `json:"milestone" yaml:"milestone"`
	DaysAfterMilestone int       `json:"daysAfterMilestone" yaml:"daysAfterMilestone"`
	IsWorkingDays      bool      `json:"isWorkingDays" yaml:"isWorkingDays"`
	IsPaid             bool      `json:"isPaid" yaml:"isPaid"`
	PaymentDate        string    `json:"paymentDate,omitempty" yaml:"paymentDate,omitempty"`
}

type Insurance struct {
	Name         string `json:"name" yaml:"name"`
	IsPurchased  bool   `json:"isPurchased" yaml:"isPurchased"`
	PurchaseDate string `json:"purchaseDate,omitempty" yaml:"purchaseDate,omitempty"`
}

type Contract struct {
	SignDate                  string        `json:"signDate,omitempty" yaml:"signDate,omitempty"`
	NeedPerformanceBond       bool          `json:"needPerformanceBond" yaml:"needPerformanceBond"`
	PerformanceBondDays       int           `json:"performanceBondDays,omitempty" yaml:"performanceBondDays,omitempty"`
	PerformanceBondSubmitDate string        `json:"performanceBondSubmitDate,omitempty" yaml:"performanceBondSubmitDate,omitempty"`
	PaymentTerms              []PaymentTerm `json:"paymentTerms" yaml:"paymentTerms"`
	InsuranceTerms            []Insurance   `json:"insuranceTerms" yaml:"insuranceTerms"`
}

// ConstructionMaterial tracks the construction-phase paperwork. A milestone
// is done exactly when its date is set; the Need flag decides whether a
// task is generated for it at all.
type ConstructionMaterial struct {
	NeedRoadOccupancyApproval bool   `json:"needRoadOccupancyApproval" yaml:"needRoadOccupancyApproval"`
	RoadOccupancyApprovalDate string `json:"roadOccupancyApprovalDate,omitempty" yaml:"roadOccupancyApprovalDate,omitempty"`

	NeedStartApplication bool   `json:"needStartApplication" yaml:"needStartApplication"`
	StartApplicationDate string `json:"startApplicationDate,omitempty" yaml:"startApplicationDate,omitempty"`

	NeedCompletionApplication bool   `json:"needCompletionApplication" yaml:"needCompletionApplication"`
	CompletionApplicationDate string `json:"completionApplicationDate,omitempty" yaml:"completionApplicationDate,omitempty"`

	NeedAcceptanceCertificate bool   `json:"needAcceptanceCertificate" yaml:"needAcceptanceCertificate"`
	AcceptanceCertificateDate string `json:"acceptanceCertificateDate,omitempty" yaml:"acceptanceCertificateDate,omitempty"`

	NeedSettlementAudit bool   `json:"needSettlementAudit" yaml:"needSettlementAudit"`
	SettlementAuditDate string `json:"settlementAuditDate,omitempty" yaml:"settlementAuditDate,omitempty"`
}

// Project is one bid-award engagement. The embedded sections are owned by
// value.
type Project struct {
	ID                   int64                `json:"id,omitempty" yaml:"-"`
	Year                 int                  `json:"year" yaml:"year"`
	ProjectNumber        string               `json:"projectNumber" yaml:"projectNumber"`
	ProjectName          string               `json:"projectName" yaml:"projectName"`
	Category             Category             `json:"category" yaml:"category"`
	EstimatedAmount      float64              `json:"estimatedAmount" yaml:"estimatedAmount"`
	BudgetPrice          float64              `json:"budgetPrice" yaml:"budgetPrice"`
	TenderDate           string               `json:"tenderDate" yaml:"tenderDate"`
	AwardNotice          AwardNotice          `json:"awardNotice" yaml:"awardNotice"`
	Contract             Contract             `json:"contract" yaml:"contract"`
	ConstructionMaterial ConstructionMaterial `json:"constructionMaterial" yaml:"constructionMaterial"`
	CreatedAt            string               `json:"createdAt" yaml:"-"`
}

// MilestoneDate resolves a payment milestone to the date recorded elsewhere
// on the project. Returns "" while the milestone has not happened.
func (p *Project) MilestoneDate(m Milestone) string {
	switch m {
	case MilestoneContractSign:
		return p.Contract.SignDate
	case MilestoneStartApplication:
		return p.ConstructionMaterial.StartApplicationDate
	case MilestoneCompletionApplication:
		return p.ConstructionMaterial.CompletionApplicationDate
	case MilestoneAcceptanceCertificate:
		return p.ConstructionMaterial.AcceptanceCertificateDate
	case MilestoneSettlementAudit:
		return p.ConstructionMaterial.SettlementAuditDate
	}
	return ""
}

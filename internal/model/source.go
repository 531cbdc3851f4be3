package model

import "strings"

// DerivedKind names the piece of project state a derived task tracks.
type DerivedKind string

const (
	KindContractSign          DerivedKind = "contract_sign"
	KindPerformanceBond       DerivedKind = "performance_bond"
	KindPayment               DerivedKind = "payment"
	KindInsurance             DerivedKind = "insurance"
	KindRoadOccupancy         DerivedKind = "road_occupancy"
	KindStartApplication      DerivedKind = "start_application"
	KindCompletionApplication DerivedKind = "completion_application"
	KindAcceptanceCertificate DerivedKind = "acceptance_certificate"
	KindSettlementAudit       DerivedKind = "settlement_audit"
)

// IsValid returns true if the kind is a known value.
func (k DerivedKind) IsValid() bool {
	switch k {
	case KindContractSign, KindPerformanceBond, KindPayment, KindInsurance,
		KindRoadOccupancy, KindStartApplication, KindCompletionApplication,
		KindAcceptanceCertificate, KindSettlementAudit:
		return true
	}
	return false
}

// Keyed reports whether tasks of this kind are distinguished by a term name.
func (k DerivedKind) Keyed() bool {
	return k == KindPayment || k == KindInsurance
}

// Marker is the word that identifies this kind inside a task title.
func (k DerivedKind) Marker() string {
	return kindMarkers[k]
}

var kindMarkers = map[DerivedKind]string{
	KindContractSign:          "签署合同",
	KindPerformanceBond:       "提交履约保函",
	KindPayment:               "付款",
	KindInsurance:             "保险",
	KindRoadOccupancy:         "占道审批",
	KindStartApplication:      "开工申请报告",
	KindCompletionApplication: "完工申请报告",
	KindAcceptanceCertificate: "竣工验收证书",
	KindSettlementAudit:       "结算审核",
}

// DerivedSource is the typed identity of a derived task. Combined with the
// task's ProjectID it names exactly one governed item.
type DerivedSource struct {
	Kind DerivedKind `json:"kind"`
	Key  string      `json:"key,omitempty"`
}

// Matches reports whether s identifies the same governed item as kind/key.
func (s *DerivedSource) Matches(kind DerivedKind, key string) bool {
	return s != nil && s.Kind == kind && s.Key == key
}

// InferSource recovers the identity of a derived task from a title written
// before identities were stored. Titles follow "<label> - <project name>".
// The exact label shapes are tried first, so a term name that happens to
// contain another kind's marker still resolves to its own term. Returns nil
// for titles that don't look derived.
func InferSource(title string) *DerivedSource {
	head, _, _ := strings.Cut(title, " - ")

	for _, kind := range []DerivedKind{KindContractSign, KindPerformanceBond} {
		if head == kind.Marker() {
			return &DerivedSource{Kind: kind}
		}
	}

	// "<term>付款"
	if name, ok := strings.CutSuffix(head, KindPayment.Marker()); ok && name != "" {
		return &DerivedSource{Kind: KindPayment, Key: name}
	}
	// "购买<name>保险"
	if rest, ok := strings.CutPrefix(head, "购买"); ok {
		if name, ok := strings.CutSuffix(rest, KindInsurance.Marker()); ok && name != "" {
			return &DerivedSource{Kind: KindInsurance, Key: name}
		}
	}

	milestones := []DerivedKind{
		KindRoadOccupancy, KindStartApplication, KindCompletionApplication,
		KindAcceptanceCertificate, KindSettlementAudit,
	}
	for _, kind := range milestones {
		if head == "完成"+kind.Marker() {
			return &DerivedSource{Kind: kind}
		}
	}

	// Hand-edited titles: fall back to the marker anywhere in the label.
	for _, kind := range append([]DerivedKind{KindContractSign, KindPerformanceBond}, milestones...) {
		if strings.Contains(head, kind.Marker()) {
			return &DerivedSource{Kind: kind}
		}
	}
	return nil
}

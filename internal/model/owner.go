package model

import "fmt"

// OwnerRef は「ユーザーかエージェンシーのどちらか一方」を指す所有者参照。
// 通知とサクセスストーリーの宛先/作成者に使う。
// ゼロ値は無効であり、UserOwner / AgencyOwner でのみ生成する。
type OwnerRef struct {
	kind PrincipalKind
	id   int64
}

// UserOwner は一般ユーザーを指すOwnerRefを返す。
func UserOwner(id int64) OwnerRef {
	return OwnerRef{kind: PrincipalUser, id: id}
}

// AgencyOwner はエージェンシーを指すOwnerRefを返す。
func AgencyOwner(id int64) OwnerRef {
	return OwnerRef{kind: PrincipalAgency, id: id}
}

// Kind は所有者の種別を返す。
func (o OwnerRef) Kind() PrincipalKind { return o.kind }

// ID は所有者のIDを返す。
func (o OwnerRef) ID() int64 { return o.id }

// IsZero は未設定のOwnerRefかどうかを返す。
func (o OwnerRef) IsZero() bool { return o.kind == "" }

// Columns はDBの (user_id, agency_id) 列に対応する値を返す。
// 片方のみ非nilになる。
func (o OwnerRef) Columns() (userID, agencyID *int64) {
	id := o.id
	switch o.kind {
	case PrincipalUser:
		return &id, nil
	case PrincipalAgency:
		return nil, &id
	default:
		return nil, nil
	}
}

// OwnerFromColumns はDBの (user_id, agency_id) 列からOwnerRefを復元する。
func OwnerFromColumns(userID, agencyID *int64) (OwnerRef, error) {
	switch {
	case userID != nil && agencyID == nil:
		return UserOwner(*userID), nil
	case agencyID != nil && userID == nil:
		return AgencyOwner(*agencyID), nil
	default:
		return OwnerRef{}, fmt.Errorf("owner columns must have exactly one value")
	}
}

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s:%d", o.kind, o.id)
}

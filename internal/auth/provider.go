package auth

import (
	"context"

	"ims/internal/domain"
)

// AccessSource is the subset of the store the auth provider needs: the
// per-event ACL expressions. Kept as a narrow interface so internal/auth
// never imports internal/store.
type AccessSource interface {
	Access(ctx context.Context, event domain.EventID) (domain.Access, error)
}

// Identity is the resolved caller for one request: a ranger's short
// names and group memberships, or the zero value for an anonymous
// request.
type Identity struct {
	ShortNames []string
	Groups     []string
}

// Anonymous reports whether this identity carries no short names, i.e.
// no authenticated user was resolved.
func (id Identity) Anonymous() bool {
	return len(id.ShortNames) == 0
}

// Provider computes Authorizations for a resolved identity, consulting
// AccessSource for per-event ACLs and a configured admin set.
type Provider struct {
	access AccessSource
	admins map[string]struct{}
}

// NewProvider constructs a Provider. admins is the imsAdmins set from
// config: any user whose short name appears there gets AuthImsAdmin
// regardless of event.
func NewProvider(access AccessSource, admins map[string]struct{}) *Provider {
	if admins == nil {
		admins = map[string]struct{}{}
	}
	return &Provider{access: access, admins: admins}
}

// AuthorizationsFor computes the bitset for (identity, event).
// event may be empty to compute the event-independent
// baseline (used e.g. for the personnel endpoint).
func (p *Provider) AuthorizationsFor(ctx context.Context, id Identity, event domain.EventID) (Authorizations, error) {
	if id.Anonymous() {
		return 0, nil
	}

	auths := baseline

	for _, sn := range id.ShortNames {
		if _, ok := p.admins[sn]; ok {
			auths |= AuthImsAdmin
			break
		}
	}

	if event == "" {
		return auths, nil
	}

	acl, err := p.access.Access(ctx, event)
	if err != nil {
		return 0, err
	}

	if domain.MatchesAny(acl.Writers, id.ShortNames, id.Groups) {
		auths |= AuthWriteIncidents | AuthReadIncidents
	} else if domain.MatchesAny(acl.Readers, id.ShortNames, id.Groups) {
		auths |= AuthReadIncidents
	}

	return auths, nil
}

// AuthorizeIncidentReportsWrite reports whether the identity may write
// field reports on event, via the event's reporters ACL. It checks that
// ACL only; the baseline writeIncidentReports flag that every
// authenticated user carries is not consulted here.
func (p *Provider) AuthorizeIncidentReportsWrite(ctx context.Context, id Identity, event domain.EventID) (bool, error) {
	if id.Anonymous() {
		return false, nil
	}
	acl, err := p.access.Access(ctx, event)
	if err != nil {
		return false, err
	}
	return domain.MatchesAny(acl.Reporters, id.ShortNames, id.Groups), nil
}

// AttachedIncidentAccess is the minimal fact the field-report special
// case needs about one attached incident: the event it belongs to.
// AuthorizeFieldReportRead works out readIncidents for that event itself.
type AttachedIncidentAccess struct {
	Event domain.EventID
}

// AuthorizeFieldReportRead implements the field-report access
// special case: a field report attached to an incident is readable by
// anyone with readIncidents on that incident's event, even without
// readIncidentReports; an unattached report falls back to the baseline
// readIncidentReports flag.
func (p *Provider) AuthorizeFieldReportRead(ctx context.Context, id Identity, attachedTo []AttachedIncidentAccess, homeEvent domain.EventID) (bool, error) {
	if id.Anonymous() {
		return false, nil
	}

	for _, att := range attachedTo {
		auths, err := p.AuthorizationsFor(ctx, id, att.Event)
		if err != nil {
			return false, err
		}
		if auths.Has(AuthReadIncidents) {
			return true, nil
		}
	}

	if len(attachedTo) == 0 {
		auths, err := p.AuthorizationsFor(ctx, id, homeEvent)
		if err != nil {
			return false, err
		}
		return auths.Has(AuthReadIncidentReports), nil
	}

	return false, nil
}

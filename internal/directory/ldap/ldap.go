// Package ldap implements directory.Provider on an LDAP server with
// groupOfNames style access groups.
package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory"
)

const pagingSize = 500

// Provider opens one bound connection per operation.
type Provider struct {
	cfg config.LDAP
}

var _ directory.Provider = (*Provider)(nil)

// New returns a Provider for cfg.
func New(cfg config.LDAP) *Provider {
	return &Provider{cfg: cfg}
}

// connect dials, optionally upgrades to TLS and binds with the service account.
// The connection timeout follows the context deadline.
func (p *Provider) connect(ctx context.Context) (*ldap.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(p.cfg.URL, ldap.DialWithDialer(dialer(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", directory.ErrUnavailable, p.cfg.URL, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}

	if p.cfg.StartTLS {
		if err := conn.StartTLS(&tls.Config{MinVersion: tls.VersionTLS12}); err != nil {
			_ = conn.Close()
			return nil, classify("start tls", err)
		}
	}

	if p.cfg.BindDN != "" {
		if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
			_ = conn.Close()
			return nil, classify("bind", err)
		}
	}

	return conn, nil
}

// dialer bounds the TCP connect by the context deadline, falling back to
// the library default without one.
func dialer(ctx context.Context) *net.Dialer {
	deadline, ok := ctx.Deadline()
	if !ok {
		return &net.Dialer{Timeout: ldap.DefaultTimeout}
	}

	return &net.Dialer{Timeout: time.Until(deadline), Deadline: deadline}
}

// Users lists the entries below UserBaseDN matching UserFilter.
func (p *Provider) Users(ctx context.Context) ([]directory.User, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		p.cfg.UserBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		p.cfg.UserFilter,
		[]string{p.cfg.UserAttribute, p.cfg.NameAttribute, "mail"},
		nil,
	)

	res, err := conn.SearchWithPaging(req, pagingSize)
	if err != nil {
		return nil, classify("list users", err)
	}

	users := make([]directory.User, 0, len(res.Entries))

	for _, e := range res.Entries {
		id := e.GetAttributeValue(p.cfg.UserAttribute)
		if id == "" {
			continue
		}

		users = append(users, directory.User{
			ID:       id,
			Username: id,
			Name:     e.GetAttributeValue(p.cfg.NameAttribute),
			Email:    e.GetAttributeValue("mail"),
			Active:   true,
		})
	}

	return users, nil
}

// GroupByName searches GroupBaseDN for a group with cn name.
func (p *Provider) GroupByName(ctx context.Context, name string) (directory.Group, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return directory.Group{}, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		p.cfg.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		p.groupFilter(name),
		[]string{"cn"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return directory.Group{}, classify("get group", err)
	}

	if len(res.Entries) == 0 {
		return directory.Group{}, fmt.Errorf("%w: %s", directory.ErrGroupNotFound, name)
	}

	return directory.Group{ID: res.Entries[0].DN, Name: name}, nil
}

// CreateGroup adds the group below GroupBaseDN. groupOfNames needs a member,
// the bind DN holds the place until students are added.
func (p *Provider) CreateGroup(ctx context.Context, name string) (directory.Group, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return directory.Group{}, err
	}
	defer conn.Close()

	dn := p.GroupDN(name)

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{p.cfg.GroupObjectClass})
	req.Attribute("cn", []string{name})
	req.Attribute(p.cfg.MemberAttribute, []string{p.placeholder()})

	if err := conn.Add(req); err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
		return directory.Group{}, classify("create group", err)
	}

	return directory.Group{ID: dn, Name: name}, nil
}

// GroupMembers reads the member attribute of the group entry.
func (p *Provider) GroupMembers(ctx context.Context, g directory.Group) ([]string, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		g.ID,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		[]string{p.cfg.MemberAttribute},
		nil,
	)

	res, err := conn.Search(req)
	if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return []string{}, nil
	}

	if err != nil {
		return nil, classify("list members", err)
	}

	ids := []string{}

	for _, e := range res.Entries {
		for _, dn := range e.GetAttributeValues(p.cfg.MemberAttribute) {
			if id, ok := StudentID(dn, p.cfg.UserAttribute); ok && dn != p.placeholder() {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

// AddUser adds the student's DN to the member attribute. Existing members are a success.
func (p *Provider) AddUser(ctx context.Context, g directory.Group, studentID string) error {
	if studentID == "" {
		return directory.ErrInvalidStudentID
	}

	return p.modify(ctx, "add user", g, func(req *ldap.ModifyRequest) {
		req.Add(p.cfg.MemberAttribute, []string{p.UserDN(studentID)})
	}, ldap.LDAPResultAttributeOrValueExists)
}

// RemoveUser deletes the student's DN from the member attribute. Non members are a success.
func (p *Provider) RemoveUser(ctx context.Context, g directory.Group, studentID string) error {
	if studentID == "" {
		return directory.ErrInvalidStudentID
	}

	return p.modify(ctx, "remove user", g, func(req *ldap.ModifyRequest) {
		req.Delete(p.cfg.MemberAttribute, []string{p.UserDN(studentID)})
	}, ldap.LDAPResultNoSuchAttribute)
}

func (p *Provider) modify(ctx context.Context, op string, g directory.Group, build func(*ldap.ModifyRequest), okCode uint16) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := ldap.NewModifyRequest(g.ID, nil)
	build(req)

	if err := conn.Modify(req); err != nil && !ldap.IsErrorWithCode(err, okCode) {
		return classify(op, err)
	}

	return nil
}

func (p *Provider) groupFilter(name string) string {
	return fmt.Sprintf("(&(objectClass=%s)(cn=%s))", ldap.EscapeFilter(p.cfg.GroupObjectClass), ldap.EscapeFilter(name))
}

func (p *Provider) placeholder() string {
	if p.cfg.BindDN != "" {
		return p.cfg.BindDN
	}

	return p.cfg.GroupBaseDN
}

// UserDN returns the DN of a student below UserBaseDN.
func (p *Provider) UserDN(studentID string) string {
	return p.cfg.UserAttribute + "=" + ldap.EscapeDN(studentID) + "," + p.cfg.UserBaseDN
}

// GroupDN returns the DN a group with that name is created at.
func (p *Provider) GroupDN(name string) string {
	return "cn=" + ldap.EscapeDN(name) + "," + p.cfg.GroupBaseDN
}

// StudentID extracts the value of attr from the first RDN of dn.
func StudentID(dn, attr string) (string, bool) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 {
		return "", false
	}

	for _, a := range parsed.RDNs[0].Attributes {
		if strings.EqualFold(a.Type, attr) {
			return a.Value, true
		}
	}

	return "", false
}

// classify marks connection level failures as transient.
func classify(op string, err error) error {
	if ldap.IsErrorAnyOf(err,
		ldap.ErrorNetwork,
		ldap.LDAPResultBusy,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultTimeLimitExceeded,
	) {
		return fmt.Errorf("%w: %s: %w", directory.ErrUnavailable, op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AdminPOST(path string, body any) error
	RawGET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Address(name string) string
	SetToken(actor, token string)
	Token(actor string) string
	UseActor(actor string)
	CurrentActor() string
}

// RegisterSteps registers operator token step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I am authenticated as "([^"]*)"$`, steps.authenticateAs)
	ctx.Step(`^I revoke my token$`, steps.revokeToken)
	ctx.Step(`^I GET "([^"]*)" without a token$`, steps.getWithoutToken)
	ctx.Step(`^I GET "([^"]*)" with token "([^"]*)"$`, steps.getWithToken)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) authenticateAs(ctx context.Context, actor string) error {
	err := s.tc.AdminPOST("/admin/tokens", map[string]any{
		"subject": s.tc.Address(actor),
		"label":   "e2e " + actor,
	})
	if err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("token issue failed with %d: %s", status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(actor, token.(string))
	s.tc.UseActor(actor)
	return nil
}

func (s *authSteps) revokeToken(ctx context.Context) error {
	token := s.tc.Token(s.tc.CurrentActor())
	if token == "" {
		return fmt.Errorf("no token to revoke for %q", s.tc.CurrentActor())
	}
	if err := s.tc.AdminPOST("/admin/tokens/revoke", map[string]any{"token": token}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("token revoke failed with %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *authSteps) getWithoutToken(ctx context.Context, path string) error {
	return s.tc.RawGET(path, nil)
}

func (s *authSteps) getWithToken(ctx context.Context, path, token string) error {
	return s.tc.RawGET(path, map[string]string{"Authorization": "Bearer " + token})
}

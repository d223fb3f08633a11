package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

const testPassword = "Tr0ub4dor&3x"

func Test_userApi_login(t *testing.T) {
	srv, env := setup(t)

	usr := testutil.CreateUser(t, env.UserRepo, "Jane Doe", "jane", "jane@test.cd", testPassword, []string{user.RoleLearner}, true)
	testutil.CreateUser(t, env.UserRepo, "Naughty", "ndog", "ndog@test.cd", testPassword, []string{user.RoleLearner}, false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, LoginRequest{Username: uname, Password: pwd})
	}
	authFailed := marshalObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{name: "missing credentials", body: login("", ""), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: login("john", testPassword), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: login("jane", "wrong"), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "deactivated account", body: login("ndog", testPassword),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, srv, tests)

	for _, uname := range []string{"jane", " JANE@test.cd "} {
		t.Run("success "+uname, func(t *testing.T) {
			var resp LoginResponse
			do(t, srv, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: uname, Password: testPassword}, http.StatusOK, &resp)
			assert.NotEmpty(t, resp.Token)
		})
	}

	usr, err := env.UserSvc.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero())
}

func Test_userApi_register(t *testing.T) {
	srv, env := setup(t)
	testutil.CreateLearner(t, env.UserRepo, "taken")

	newUser := func(uname, email, pwd string, roles ...string) user.NewUser {
		return user.NewUser{
			Name:            "New Learner",
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		}
	}

	tests := []httpTest{
		{name: "missing fields", body: marshalObj(t, user.NewUser{}), wantCode: http.StatusBadRequest},
		{name: "weak password", body: marshalObj(t, newUser("newbie", "", "password")), wantCode: http.StatusBadRequest},
		{
			name: "username taken", body: marshalObj(t, newUser("taken", "", testPassword)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "email taken", body: marshalObj(t, newUser("", "taken@test.cd", testPassword)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runHTTPTests(t, srv, tests)

	t.Run("success", func(t *testing.T) {
		var usr user.User
		do(t, srv, http.MethodPost, "/v1/users/register", "", newUser("Newbie", "", testPassword, user.RoleAdmin), http.StatusCreated, &usr)
		assert.Equal(t, "newbie", usr.Username)
		assert.Equal(t, []string{user.RoleLearner}, usr.Roles)
		assert.True(t, usr.IsActive)
	})
}

func Test_userApi_me(t *testing.T) {
	srv, env := setup(t)

	usr := testutil.CreateLearner(t, env.UserRepo, "jane")
	inactive := testutil.CreateUser(t, env.UserRepo, "Naughty", "ndog", "", "", []string{user.RoleLearner}, false)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "no token", method: http.MethodGet, path: "/v1/users/me",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "invalid token", method: http.MethodGet, path: "/v1/users/me", token: "not-a-jwt",
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "deactivated account", method: http.MethodGet, path: "/v1/users/me", token: getToken(t, srv, inactive),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		var got user.User
		do(t, srv, http.MethodGet, "/v1/users/me", getToken(t, srv, usr), nil, http.StatusOK, &got)
		assert.Equal(t, usr.ID, got.ID)
		assert.Equal(t, usr.Username, got.Username)
	})

	t.Run("refresh token", func(t *testing.T) {
		var resp LoginResponse
		do(t, srv, http.MethodPost, "/v1/users/token-refresh", getToken(t, srv, usr), nil, http.StatusOK, &resp)
		assert.NotEmpty(t, resp.Token)
		do(t, srv, http.MethodGet, "/v1/users/me", resp.Token, nil, http.StatusOK, nil)
	})
}

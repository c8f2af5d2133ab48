package utils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/check-broken-packages/internal/utils"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := utils.NewHomeExpanderWithProvider(func() (string, error) {
		return "/home/arch", nil
	})

	testCases := []struct {
		name         string
		candidate    string
		expectedPath string
	}{
		{name: "home_only", candidate: "~", expectedPath: "/home/arch"},
		{name: "home_relative", candidate: "~/.config/check-broken-packages", expectedPath: "/home/arch/.config/check-broken-packages"},
		{name: "other_user", candidate: "~root/config.yaml", expectedPath: "~root/config.yaml"},
		{name: "absolute", candidate: "/etc/check-broken-packages.yaml", expectedPath: "/etc/check-broken-packages.yaml"},
		{name: "empty", candidate: "", expectedPath: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidate))
		})
	}
}

func TestHomeExpanderKeepsPathWhenLookupFails(testInstance *testing.T) {
	lookupCount := 0
	expander := utils.NewHomeExpanderWithProvider(func() (string, error) {
		lookupCount++
		return "", errors.New("no home")
	})

	require.Equal(testInstance, "~/config.yaml", expander.Expand("~/config.yaml"))
	require.Equal(testInstance, "~", expander.Expand("~"))
	require.Equal(testInstance, 1, lookupCount)
}

//go:build windows

// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keystore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func currentUserSID(t *testing.T) string {
	t.Helper()
	var token windows.Token
	require.NoError(t, windows.OpenProcessToken(
		windows.CurrentProcess(),
		windows.TOKEN_QUERY,
		&token,
	))
	defer token.Close()
	user, err := token.GetTokenUser()
	require.NoError(t, err)
	return user.User.Sid.String()
}

func applyDACL(t *testing.T, path string, sddl string, protected bool) {
	t.Helper()
	sd, err := windows.SecurityDescriptorFromString(sddl)
	require.NoError(t, err)
	dacl, _, err := sd.DACL()
	require.NoError(t, err)
	info := windows.SECURITY_INFORMATION(windows.DACL_SECURITY_INFORMATION)
	if protected {
		info |= windows.PROTECTED_DACL_SECURITY_INFORMATION
	}
	require.NoError(t, windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		info,
		nil, nil, dacl, nil,
	))
}

func TestKeyFileACL(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)
	testDefs := []struct {
		name    string
		sddl    string
		wantErr string
	}{
		{"everyone", "D:(A;;GR;;;WD)", "Everyone"},
		{"builtin users", "D:(A;;GR;;;BU)", "BUILTIN\\Users"},
		{"authenticated users", "D:(A;;GR;;;AU)", "Authenticated Users"},
	}
	for _, td := range testDefs {
		t.Run(td.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "account.key")
			require.NoError(t, WriteKeyFile(path, signer, false))
			applyDACL(t, path, td.sddl, false)
			_, err := Load(Config{Path: path})
			require.ErrorIs(t, err, ErrInsecureFileMode)
			assert.Contains(t, err.Error(), td.wantErr)
		})
	}

	t.Run("owner only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "account.key")
		require.NoError(t, WriteKeyFile(path, signer, false))
		applyDACL(t, path, fmt.Sprintf("D:P(A;;GA;;;%s)", currentUserSID(t)), true)
		loaded, err := Load(Config{Path: path})
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), loaded.Address())
	})
}

func TestCheckSDDL(t *testing.T) {
	assert.ErrorIs(t, checkSDDL("k", "O:BA"), ErrInsecureFileMode)
	assert.NoError(t, checkSDDL("k", "D:P(D;;GA;;;WD)(A;;GA;;;SY)"))
	assert.ErrorIs(t, checkSDDL("k", "D:(A;;GA;;;S-1-1-0)"), ErrInsecureFileMode)
}

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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables naming the master keys used to encrypt new key
// files
const (
	EnvGCPKMSResourceID = "ZKVOTE_GCP_KMS_RESOURCE_ID"
	EnvAWSKMSKeyARNs    = "ZKVOTE_AWS_KMS_KEY_ARNS"
	EnvAWSKMSProfile    = "ZKVOTE_AWS_KMS_PROFILE"
)

var ErrNoMasterKeys = errors.New("no sops master keys configured")

// isEncrypted reports whether data is a JSON object with sops metadata
func isEncrypted(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["sops"]
	return ok
}

func decryptKeyFile(data []byte) ([]byte, error) {
	return decrypt.Data(data, "binary")
}

// encryptKeyFile wraps data in a sops binary store encrypted to the master
// keys named in the environment
func encryptKeyFile(data []byte) ([]byte, error) {
	if isEncrypted(data) {
		return nil, errors.New("key file is already encrypted")
	}
	storeConfig := &config.JSONBinaryStoreConfig{}
	store := jsonstore.NewBinaryStore(storeConfig)
	branches, err := store.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("load key data: %w", err)
	}
	keyGroups, err := masterKeyGroupsFromEnv()
	if err != nil {
		return nil, err
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errList := tree.GenerateDataKey()
	if len(errList) > 0 {
		return nil, fmt.Errorf("generate data key: %v", errList)
	}
	err = scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	})
	if err != nil {
		return nil, fmt.Errorf("encrypt key data: %w", err)
	}
	return store.EmitEncryptedFile(tree)
}

func masterKeyGroupsFromEnv() ([]sopsapi.KeyGroup, error) {
	var groups []sopsapi.KeyGroup
	if rid := os.Getenv(EnvGCPKMSResourceID); rid != "" {
		var group sopsapi.KeyGroup
		for _, k := range gcpkms.MasterKeysFromResourceIDString(rid) {
			group = append(group, skeys.MasterKey(k))
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	if arns := os.Getenv(EnvAWSKMSKeyARNs); arns != "" {
		var group sopsapi.KeyGroup
		profile := os.Getenv(EnvAWSKMSProfile)
		for _, k := range awskms.MasterKeysFromArnString(arns, nil, profile) {
			group = append(group, skeys.MasterKey(k))
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf(
			"%w: set %s or %s",
			ErrNoMasterKeys,
			EnvGCPKMSResourceID,
			EnvAWSKMSKeyARNs,
		)
	}
	return groups, nil
}

// Copyright © 2025 CipherFleet Technologies Ltd.
//
// SPDX-License-Identifier: Apache-2.0
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

// Package devoracle is an in-process disclosure oracle for development and
// testing. Handles follow a trivial reversible encoding (a one byte marker
// followed by a 32 byte big-endian value), so the oracle can produce the
// cleartext without any real confidential compute estate behind it. Proofs
// are secp256k1 signatures over the request id and payload, verified by
// recovering the signer address.
package devoracle

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
)

const (
	handleMarker = 0x01
	handleLength = 33
)

type DevOracle struct {
	keypair      *secp256k1.KeyPair
	pinnedSigner *cftypes.EthAddress
	handler      oracle.ReplyHandler
	autoDeliver  bool

	lock     sync.Mutex
	nextID   atomic.Uint64
	requests map[uint64][]cftypes.HexBytes
}

var _ oracle.DisclosureOracle = &DevOracle{}
var _ oracle.ComputeService = &DevOracle{}

func NewDevOracle(ctx context.Context) (*DevOracle, error) {
	kp, err := secp256k1.GenerateSecp256k1KeyPair()
	if err != nil {
		return nil, err
	}
	o := &DevOracle{
		keypair:  kp,
		requests: make(map[uint64][]cftypes.HexBytes),
	}
	log.L(ctx).Infof("Development oracle signer %s", o.SignerAddress())
	return o, nil
}

func (o *DevOracle) SignerAddress() *cftypes.EthAddress {
	return cftypes.EthAddressBytes(o.keypair.Address[:])
}

// PinSigner fixes the address proofs must recover to. Unset, the oracle
// trusts its own generated keypair.
func (o *DevOracle) PinSigner(addr *cftypes.EthAddress) {
	o.pinnedSigner = addr
}

// SetReplyHandler registers the coordinator entry point replies are
// delivered to. With autoDeliver set, every RequestDisclosure spawns an
// asynchronous delivery; otherwise tests drive Deliver explicitly.
func (o *DevOracle) SetReplyHandler(handler oracle.ReplyHandler, autoDeliver bool) {
	o.handler = handler
	o.autoDeliver = autoDeliver
}

// EncryptValue mints a development handle for a cleartext value.
func EncryptValue(v uint64) cftypes.HexBytes {
	handle := make([]byte, handleLength)
	handle[0] = handleMarker
	new(big.Int).SetUint64(v).FillBytes(handle[1:])
	return handle
}

func (o *DevOracle) IsInitialized(ctx context.Context, handle cftypes.HexBytes) (bool, error) {
	return len(handle) == handleLength && handle[0] == handleMarker, nil
}

func (o *DevOracle) decryptValue(ctx context.Context, handle cftypes.HexBytes) (uint64, error) {
	if ok, _ := o.IsInitialized(ctx, handle); !ok {
		return 0, i18n.NewError(ctx, msgs.MsgHandleUninitialized)
	}
	return new(big.Int).SetBytes(handle[1:]).Uint64(), nil
}

func (o *DevOracle) RequestDisclosure(ctx context.Context, handles []cftypes.HexBytes) (uint64, error) {
	for _, h := range handles {
		if _, err := o.decryptValue(ctx, h); err != nil {
			return 0, err
		}
	}
	requestID := o.nextID.Add(1)
	o.lock.Lock()
	o.requests[requestID] = handles
	o.lock.Unlock()
	log.L(ctx).Debugf("Dev oracle accepted disclosure request %d (%d handles)", requestID, len(handles))
	if o.autoDeliver && o.handler != nil {
		go func() {
			if err := o.Deliver(context.Background(), requestID); err != nil {
				log.L(ctx).Errorf("Dev oracle delivery of request %d rejected: %s", requestID, err)
			}
		}()
	}
	return requestID, nil
}

// BuildReply produces the payload and proof the oracle would deliver for a
// previously accepted request.
func (o *DevOracle) BuildReply(ctx context.Context, requestID uint64) (payload, proof cftypes.HexBytes, err error) {
	o.lock.Lock()
	handles := o.requests[requestID]
	o.lock.Unlock()
	if len(handles) != 2 {
		return nil, nil, i18n.NewError(ctx, msgs.MsgDisclosureUnknownRequest, requestID)
	}
	packageID, err := o.decryptValue(ctx, handles[0])
	if err != nil {
		return nil, nil, err
	}
	vehicleID, err := o.decryptValue(ctx, handles[1])
	if err != nil {
		return nil, nil, err
	}
	if payload, err = oracle.EncodePayload(ctx, packageID, vehicleID); err != nil {
		return nil, nil, err
	}
	sig, err := o.keypair.SignDirect(signingMessage(requestID, payload))
	if err != nil {
		return nil, nil, err
	}
	return payload, sig.CompactRSV(), nil
}

// Deliver performs the asynchronous oracle callback for a request. Calling
// it twice reproduces a duplicate delivery, which the coordinator must
// reject as a replay.
func (o *DevOracle) Deliver(ctx context.Context, requestID uint64) error {
	payload, proof, err := o.BuildReply(ctx, requestID)
	if err != nil {
		return err
	}
	return o.handler.DeliverReply(ctx, requestID, payload, proof)
}

func (o *DevOracle) Verify(ctx context.Context, requestID uint64, payload, proof cftypes.HexBytes) (bool, error) {
	sig, err := secp256k1.DecodeCompactRSV(ctx, proof)
	if err != nil {
		return false, err
	}
	addr, err := sig.RecoverDirect(signingMessage(requestID, payload), 0)
	if err != nil {
		return false, err
	}
	expected := o.SignerAddress()
	if o.pinnedSigner != nil {
		expected = o.pinnedSigner
	}
	return cftypes.EthAddressBytes(addr[:]).Equals(expected), nil
}

func signingMessage(requestID uint64, payload cftypes.HexBytes) []byte {
	msg := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(msg, requestID)
	copy(msg[8:], payload)
	return msg
}

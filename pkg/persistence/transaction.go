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

package persistence

import (
	"context"

	"gorm.io/gorm"
)

type DBTX interface {
	// Access the gORM DB object for the transaction
	DB() *gorm.DB
	// Functions run at the end of the transaction, before commit. An error from these rolls back the transaction
	AddPreCommit(func(ctx context.Context, tx DBTX) error)
	// Only called after a transaction successfully commits - used to trigger actions conditional on new data
	AddPostCommit(func(ctx context.Context))
	// Only called if the transaction rolls back - can replace/wrap the error that is returned
	AddPostRollback(func(ctx context.Context, err error) error)
	// Called in all cases AFTER the transaction completes, to release resources. A non-nil error indicates rollback
	AddFinalizer(func(ctx context.Context, err error))
}

type transaction struct {
	txCtx         context.Context
	gdb           *gorm.DB
	preCommits    []func(ctx context.Context, tx DBTX) error
	postCommits   []func(ctx context.Context)
	postRollbacks []func(ctx context.Context, err error) error
	finalizers    []func(ctx context.Context, err error)
}

func (t *transaction) DB() *gorm.DB {
	return t.gdb
}

func (t *transaction) AddPreCommit(fn func(ctx context.Context, tx DBTX) error) {
	t.preCommits = append(t.preCommits, fn)
}

func (t *transaction) AddPostCommit(fn func(ctx context.Context)) {
	t.postCommits = append(t.postCommits, fn)
}

func (t *transaction) AddPostRollback(fn func(ctx context.Context, err error) error) {
	t.postRollbacks = append(t.postRollbacks, fn)
}

func (t *transaction) AddFinalizer(fn func(ctx context.Context, err error)) {
	t.finalizers = append(t.finalizers, fn)
}

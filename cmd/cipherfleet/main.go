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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cipherfleet/cipherfleet/internal/componentmgr"
	"github.com/hyperledger/firefly-common/pkg/log"
)

var configFile = flag.String("config", "cipherfleet.yaml", "path to the YAML configuration file")

func main() {
	flag.Parse()
	if err := run(context.Background(), *configFile); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	var conf componentmgr.Config
	if err := componentmgr.ReadAndParseYAMLFile(ctx, configFile, &conf); err != nil {
		log.L(ctx).Errorf("Configuration error: %s", err)
		return err
	}

	cm := componentmgr.NewComponentManager(ctx, &conf)
	defer cm.Stop()

	err := cm.Init()
	if err == nil {
		err = cm.StartManagers()
	}
	if err == nil {
		err = cm.CompleteStart()
	}
	if err != nil {
		log.L(ctx).Errorf("Startup failed: %s", err)
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.L(ctx).Infof("Shutting down on signal %s", sig)
	return nil
}

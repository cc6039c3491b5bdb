// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package registry defines the fixed set of named module slots a document
// may hold. Module names are stable for the lifetime of a deployment;
// adding a new name here must not require migrating existing documents,
// because every module defaults to nil until first written.
package registry

import "sort"

// moduleNames is the complete allow-list of module slots, grouped the way
// the planning tool's pages consume them.
var moduleNames = []string{
	// Core planning data
	"arretData",
	"scopeMarkers",
	"iw37nData",
	"iw38Data",
	"tpaaData",
	"pwData",

	// PSV and maintenance
	"psvData",
	"psvPlans",
	"maintenancesCapitalisablesData",
	"plansEntretienData",

	// Teams and contacts
	"teamData",
	"contactsData",
	"entrepreneurData",
	"entrepreneurAllData",
	"entrepreneurPostesTrav",

	// Projects and works
	"projetsData",
	"revisionTravauxData",
	"strategieData",
	"rencontreData",
	"rencontresHebdoData",
	"reunionsData",

	// Requests and forms
	"demandesEchafaudages",
	"demandesGruesNacelles",
	"demandesVerrouillage",
	"ingqData",
	"espaceClosData",
	"t51Data",

	// Procurement and parts
	"approvisionnementData",
	"consommablesData",
	"piecesData",
	"t30LongDelaiPieces",
	"t30CommandeData",
	"t60LongDelaiPieces",
	"t60CommandeData",

	// Equipment and plans
	"equipementLevageData",
	"equipementLevageFiles",
	"planLevageData",
	"nacellesData",
	"travailHauteurData",
	"equipLocationData",
	"equipLocationPlanData",
	"t57EquipementsData",
	"zonesPlanData",
	"zonesEntreposageData",
	"besoinElectriquesData",
	"purgesGazCompteRenduData",
	"consommablesCommandeData",

	// Notices and communication
	"avisData",
	"avisSyndicauxData",
	"pointPresseData",

	// Analysis and tracking
	"smedData",
	"amdecData",
	"suiviCoutData",
	"t33PriorisationData",
	"t40EntrepreneursData",
	"t55Data",
	"t55EntrepreneursList",
	"t55PdfTemplate",
	"t55DocxTemplate",
	"t55HistoriqueData",

	// Configuration and filters
	"settingsData",
	"scopeFilters",
	"scopeStatuts",
	"posteAllocations",
	"dataPageFilters",
	"dashboardCurrentFilter",
	"datesLimitesData",
	"planSuivisJournaliersData",
	"plansModificationsData",
	"ganttPontRoulantData",

	// Plant sections
	"hydrauliqueSectionData",
	"nettoyageSectionData",
	"ndtSectionData",
	"amenagementData",
	"toursRefroidissementData",
	"protocoleArretData",

	// Manual and cached data
	"tpaaPwManualData",
	"tpaaPwCachedData",
	"soumissionsManualData",
	"t21ManualData",

	// Resources and archives
	"ressourcesPlanificationData",
	"externalsData",
	"archivesData",
	"t25Data",

	// Post-mortem
	"notesProchainArret",

	// Sync bookkeeping
	"syncStatus",
}

// nameSet is built once for O(1) membership checks.
var nameSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(moduleNames))
	for _, name := range moduleNames {
		set[name] = struct{}{}
	}
	return set
}()

// IsValid reports whether name is a registered module slot.
func IsValid(name string) bool {
	_, ok := nameSet[name]
	return ok
}

// Names returns the registered module names in sorted order.
// The returned slice is a copy and safe to modify.
func Names() []string {
	names := make([]string, len(moduleNames))
	copy(names, moduleNames)
	sort.Strings(names)
	return names
}

// Count returns the number of registered module slots.
func Count() int {
	return len(moduleNames)
}

// Defaults returns a fresh map with every registered module set to its
// default value (nil). Callers own the returned map.
func Defaults() map[string]any {
	defaults := make(map[string]any, len(moduleNames))
	for _, name := range moduleNames {
		defaults[name] = nil
	}
	return defaults
}

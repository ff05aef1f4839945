package resourcegraph

// KQL query templates for Azure Resource Graph. All queries are scoped by the
// subscriptions list in the request payload; nothing is hardcoded here.

const AllResources = `
Resources
| project
    id,
    name,
    type,
    resourceGroup,
    subscriptionId,
    location,
    tags,
    properties,
    kind
| order by type asc
`

const UnattachedDisks = `
Resources
| where type =~ 'microsoft.compute/disks'
| extend diskState = tostring(properties.diskState)
| where diskState =~ 'Unattached'
| extend sizeGB = toint(properties.diskSizeGB)
| extend skuName = tostring(sku.name)
| project id, name, resourceGroup, subscriptionId, location, sizeGB, skuName, tags
`

const OrphanedPublicIPs = `
Resources
| where type =~ 'microsoft.network/publicipaddresses'
| where isnull(properties.ipConfiguration) and isnull(properties.natGateway)
| extend skuName = tostring(sku.name)
| project id, name, resourceGroup, subscriptionId, location, skuName, tags
`

const OrphanedNICs = `
Resources
| where type =~ 'microsoft.network/networkinterfaces'
| where isnull(properties.virtualMachine)
| project id, name, resourceGroup, subscriptionId, location, tags
`

const StaleSnapshots = `
Resources
| where type =~ 'microsoft.compute/snapshots'
| extend timeCreated = todatetime(properties.timeCreated)
| where timeCreated < ago(90d)
| extend sizeGB = toint(properties.diskSizeGB)
| project id, name, resourceGroup, subscriptionId, location, sizeGB, timeCreated, tags
`

const AllVMs = `
Resources
| where type =~ 'microsoft.compute/virtualmachines'
| extend vmSize = tostring(properties.hardwareProfile.vmSize)
| extend osType = tostring(properties.storageProfile.osDisk.osType)
| extend powerState = tostring(properties.extended.instanceView.powerState.displayStatus)
| project id, name, resourceGroup, subscriptionId, location, vmSize, osType, powerState, tags
`

const AppServicePlans = `
Resources
| where type =~ 'microsoft.web/serverfarms'
| extend skuName = tostring(sku.name)
| extend skuTier = tostring(sku.tier)
| extend currentWorkers = toint(properties.numberOfWorkers)
| extend maximumElasticWorkerCount = toint(properties.maximumElasticWorkerCount)
| project id, name, resourceGroup, subscriptionId, location, skuName, skuTier, currentWorkers, tags
`

const SQLDatabases = `
Resources
| where type =~ 'microsoft.sql/servers/databases'
| extend skuName = tostring(sku.name)
| extend skuTier = tostring(sku.tier)
| extend skuCapacity = toint(sku.capacity)
| where name !~ 'master'
| project id, name, resourceGroup, subscriptionId, location, skuName, skuTier, skuCapacity, tags
`

const MissingCostCenterTag = `
Resources
| where isnull(tags['cost-center']) or tags['cost-center'] =~ ''
| where type !in~ (
    'microsoft.resources/subscriptions/resourcegroups',
    'microsoft.authorization/roleassignments'
  )
| project id, name, type, resourceGroup, subscriptionId, location, tags
| order by type asc
`

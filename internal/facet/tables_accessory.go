package facet

// Zoom rules: variable ranges first, then fixed power with objective
// (ACOG style), then bare fixed power.
var opticZoomTable = Table{
	R(`\b(\d{1,2}(?:\.\d)?)\s*-\s*(\d{1,2}(?:\.\d)?)\s*X`, "${1}-${2}X"),
	R(`\b(\d{1,2}(?:\.\d)?)\s*X\s*(\d{2})\b`, "${1}X${2}"),
	R(`\b(\d{1,2}(?:\.\d)?)\s*X\b`, "${1}X"),
	R(`\bRED\s*DOT\b|\bREFLEX\b|\bHOLO(?:GRAPHIC)?\b|\bRDS\b`, "No Magnification").Except(`\d\s*X`),
}

var sightTypeTable = Table{
	R(`\bTHERMAL\b`, "Thermal"),
	R(`\bNIGHT\s*(?:VSN|VISION)\b|\bNVG\b`, "Night Vision"),
	R(`\bRNG\s*FNDR\b|\bRANGE\s*FINDER\b|\bRANGEFINDER\b|\bLRF\b`, "Range Finder"),
	R(`\bMAGNIFIER\b`, "Magnifier"),
	R(`\bPRISM\b`, "Prism"),
	R(`\bHOLO(?:GRAPHIC)?\b`, "Holographic"),
	R(`\bRED\s*DOT\b|\bRDS\b`, "Red Dot"),
	R(`\bREFLEX\b`, "Reflex"),
	R(`\bBINOC(?:ULAR)?S?\b`, "Binocular"),
	R(`\bMONO(?:CULAR)?\b`, "Monocular"),
	R(`\bSPOTTING\s*SCOPE\b`, "Spotting Scope"),
	R(`\bLASER\b`, "Laser"),
	R(`\bSCOPE\b|\b\d{1,2}(?:\.\d)?\s*-\s*\d{1,2}(?:\.\d)?\s*X`, "Scope"),
	R(`\bTRITIUM\b|\bNIGHT\s*SIGHTS?\b`, "Night Sights"),
	R(`\bFIBER\s*OPTIC\b|\bFO\b`, "Fiber Optic"),
	R(`\bIRON\s*SIGHTS?\b|\bSIGHT\s*SET\b|\bSIGHTS?\b`, "Iron Sights"),
}

var accessoryTypeTable = Table{
	R(`\bMAG(?:AZINE)?\s*POUCH\b|\bMAG\s*CARRIER\b`, "Magazine Pouch"),
	R(`\bHOLSTER\b|\bIWB\b|\bOWB\b`, "Holster"),
	R(`\bSLING\b|\bSWIVEL\b`, "Sling"),
	R(`\bBIPOD\b`, "Bipod"),
	R(`\bSPEED\s*LOADER\b|\bSPEEDLOADER\b|\bMAG\s*LOADER\b`, "Loader"),
	R(`\bSNAP\s*CAPS?\b|\bDUMMY\s*ROUNDS?\b`, "Snap Caps"),
	R(`\bCLEANING\b|\bBORE\s*(?:SNAKE|BRUSH)\b|\bCLEANING\s*ROD\b`, "Cleaning Kit"),
	R(`\bOIL\b|\bLUBE\b|\bLUBRICANT\b|\bCLP\b|\bGREASE\b`, "Lubricant"),
	R(`\bSOLVENT\b`, "Solvent"),
	R(`\bTARGETS?\b`, "Target"),
	R(`\bFLASH\s*(?:HIDER|SUPPRESSOR)\b|\bMUZZLE\s*(?:BRAKE|DEVICE)\b|\bCOMPENSATOR\b`, "Muzzle Device"),
	R(`\bCHOKE\s*TUBES?\b|\bCHOKE\b`, "Choke Tube"),
	R(`\bWEAPON\s*LIGHT\b|\bFLASHLIGHT\b|\bWML\b|\bLIGHT\b`, "Light").Except(`\bLIGHT\s*WEIGHT\b|\bLIGHTWEIGHT\b`),
	R(`\bLASER\b`, "Laser"),
	R(`\bHANDGUARD\b|\bFOREND\b`, "Handguard"),
	R(`\bTRIGGER\b`, "Trigger").Except(`\bTRIGGER\s*(?:PULL|WEIGHT)\b`),
	R(`\bSTOCK\b|\bBRACE\b`, "Stock"),
	R(`\bGRIP\b`, "Grip"),
	R(`\bRECOIL\s*PAD\b|\bBUTT\s*(?:PAD|PLATE)\b|\bCHEEK\s*(?:REST|RISER)\b`, "Recoil Pad"),
	R(`\bRAIL\b`, "Rail"),
	R(`\bSCOPE\s*MOUNT\b|\bRINGS\b|\bMOUNT\b|\bBASE\b`, "Mount"),
	R(`\bHARD\s*CASE\b|\bRIFLE\s*CASE\b|\bPISTOL\s*CASE\b|\bCASE\b`, "Case"),
	R(`\bBACKPACK\b|\bPACK\b|\bBAG\b`, "Bag"),
	R(`\bEAR\s*(?:PRO|MUFFS?|PLUGS?)\b|\bHEARING\b|\bMUFFS?\b`, "Hearing Protection"),
	R(`\bSHOOTING\s*GLASSES\b|\bEYE\s*PRO(?:TECTION)?\b|\bGLASSES\b`, "Eye Protection"),
	R(`\bSAFE\b|\bLOCK\s*BOX\b|\bLOCKBOX\b`, "Safe"),
	R(`\bKNIFE\b|\bBLADE\b`, "Knife"),
	R(`\bMULTI\s*-?\s*TOOL\b|\bTOOL\b|\bWRENCH\b`, "Tool"),
}

// Platform compatibility. AR-10 precedes AR-15 so the bare "AR" catch-all
// only fires when nothing more specific does.
var compatibilityTable = Table{
	R(`\bAR-?10\b|\bLR-?308\b|\bSR-?25\b`, "AR-10"),
	R(`\bAR-?15\b|\bM4\b|\bM16\b|\bAR\b`, "AR-15"),
	R(`\bAK-?(?:47|74)\b|\bAKM\b|\bAK\b`, "AK"),
	R(`\bSKS\b`, "SKS"),
	R(`\bGLOCK\b|\bGLK\b`, "Glock"),
	R(`\b1911\b`, "1911"),
	R(`\bM&P\b`, "S&W M&P"),
	R(`\bP320\b`, "SIG P320"),
	R(`\bP365\b`, "SIG P365"),
	R(`\bBERETTA\s*92\b|\bM9\b`, "Beretta 92"),
	R(`\b10/22\b`, "Ruger 10/22"),
	R(`\b(?:REMINGTON|REM)\s*870\b`, "Remington 870"),
	R(`\b(?:REMINGTON|REM)\s*700\b`, "Remington 700"),
	R(`\bMOSSBERG\s*(?:500|590)\b`, "Mossberg 500/590"),
}

var materialTable = Table{
	R(`\bCARBON\s*FIBER\b`, "Carbon Fiber"),
	R(`\bKYDEX\b`, "Kydex"),
	R(`\bLEATHER\b`, "Leather"),
	R(`\bNYLON\b|\bCORDURA\b`, "Nylon"),
	R(`\bPOLYMER\b|\bPOLY\b`, "Polymer"),
	R(`\bTITANIUM\b`, "Titanium"),
	R(`\bALUMINUM\b|\bALUMINIUM\b|\bALUM\b|\b7075\b|\b6061\b`, "Aluminum"),
	R(`\bSTAINLESS\b`, "Stainless Steel"),
	R(`\bSTEEL\b`, "Steel"),
	R(`\bWOOD\b|\bWALNUT\b|\bLAMINATE\b`, "Wood"),
	R(`\bRUBBER\b`, "Rubber"),
}

var mountTypeTable = Table{
	R(`\bM-?LOK\b`, "M-LOK"),
	R(`\bKEY\s*-?\s*MOD\b`, "KeyMod"),
	R(`\bCANTILEVER\b`, "Cantilever"),
	R(`\bQD\b|\bQUICK\s*-?\s*DETACH\w*\b`, "Quick Detach"),
	R(`\bPICATINNY\b|\bPIC\b|\b1913\b`, "Picatinny"),
	R(`\bWEAVER\b`, "Weaver"),
	R(`\bDOVETAIL\b`, "Dovetail"),
	R(`\bRMR\b`, "RMR Footprint"),
	R(`\b(30|34|35)\s*MM\b`, "${1}mm"),
	R(`\b1\s*(?:"|IN\b|INCH\b)`, `1"`),
	R(`\bRINGS?\b`, "Rings"),
}

var finishTable = Table{
	R(`\bBURNT\s*BRONZE\b`, "Burnt Bronze"),
	R(`\b(?:TWO|2)\s*-?\s*TONE\b`, "Two-Tone"),
	R(`\b(?:BLACK|BLK)\s*/\s*(?:FDE|TAN)\b`, "Black/Tan"),
	R(`\b(?:STAINLESS|SS)\s*/\s*(?:BLACK|BLK)\b`, "Stainless/Black"),
	R(`\bFDE\b|\bFLAT\s*DARK\s*EARTH\b`, "FDE"),
	R(`\bOD\s*GREEN\b|\bODG\b|\bOLIVE\s*DRAB\b`, "OD Green"),
	R(`\bMULTI\s*-?\s*CAM\b`, "Multicam"),
	R(`\bKRYPTEK\b`, "Kryptek"),
	R(`\bCAMO(?:UFLAGE)?\b|\bREALTREE\b|\bMOSSY\s*OAK\b`, "Camouflage"),
	R(`\bCERAKOTE\b`, "Cerakote"),
	R(`\bNITRIDE\b|\bMELONITE\b`, "Nitride"),
	R(`\bPARKERIZED\b`, "Parkerized"),
	R(`\bBLUED\b|\bBLUING\b`, "Blued"),
	R(`\bMATTE\s*(?:BLACK|BLK)\b`, "Matte Black"),
	R(`\bSTAINLESS\b|\bSTS\b|\bSS\b`, "Stainless"),
	R(`\bNICKEL\b`, "Nickel"),
	R(`\bBRONZE\b|\bBRZ\b`, "Bronze"),
	R(`\bCOYOTE\b|\bTAN\b|\bDESERT\b`, "Tan"),
	R(`\bGRAY\b|\bGREY\b|\bGRY\b|\bTUNGSTEN\b`, "Gray"),
	R(`\bBLACK\b|\bBLK\b`, "Black"),
	R(`\bGREEN\b|\bGRN\b`, "Green"),
	R(`\bWALNUT\b|\bWOOD\b`, "Wood"),
	R(`\bLAMINATE\b`, "Laminate"),
	R(`\bSILVER\b`, "Silver"),
	R(`\bWHITE\b`, "White"),
	R(`\bPINK\b`, "Pink"),
	R(`\bRED\b`, "Red").Except(`\bRED\s*DOT\b`),
	R(`\bBLUE\b`, "Blue"),
	R(`\bMATTE\b`, "Matte"),
}
